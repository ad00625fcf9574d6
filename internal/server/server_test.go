package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"donorbridge/internal/approval"
	"donorbridge/internal/identity"
	"donorbridge/internal/session"
	"donorbridge/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orchestratorStub panics on any method a test did not provide.
type orchestratorStub struct {
	orchestrator

	createDonationFn  func(context.Context, approval.DonationInput) approval.Result
	approveDonationFn func(context.Context, string) approval.Result
	rejectDonationFn  func(context.Context, string, string) approval.Result
	pendingFn         func(context.Context, approval.ReviewStage) approval.Result
	registerFn        func(context.Context, approval.RegisterInput) approval.Result
	attachFn          func(context.Context, string) approval.Result
	documentKeyFn     func(context.Context, string) approval.Result
	donorDonationsFn  func(context.Context) approval.Result
}

func (o *orchestratorStub) CreateDonation(ctx context.Context, in approval.DonationInput) approval.Result {
	return o.createDonationFn(ctx, in)
}
func (o *orchestratorStub) ApproveDonation(ctx context.Context, id string) approval.Result {
	return o.approveDonationFn(ctx, id)
}
func (o *orchestratorStub) RejectDonation(ctx context.Context, id, reason string) approval.Result {
	return o.rejectDonationFn(ctx, id, reason)
}
func (o *orchestratorStub) PendingDonations(ctx context.Context, stage approval.ReviewStage) approval.Result {
	return o.pendingFn(ctx, stage)
}
func (o *orchestratorStub) DonorDonations(ctx context.Context) approval.Result {
	return o.donorDonationsFn(ctx)
}
func (o *orchestratorStub) RegisterAccount(ctx context.Context, in approval.RegisterInput) approval.Result {
	return o.registerFn(ctx, in)
}
func (o *orchestratorStub) AttachDocument(ctx context.Context, key string) approval.Result {
	return o.attachFn(ctx, key)
}
func (o *orchestratorStub) DocumentKey(ctx context.Context, id string) approval.Result {
	return o.documentKeyFn(ctx, id)
}

type authStub struct {
	authenticateFn func(context.Context, string, string) (*identity.Token, error)
	confirmFn      func(context.Context, string, string) error
}

func (a *authStub) Authenticate(ctx context.Context, email, password string) (*identity.Token, error) {
	return a.authenticateFn(ctx, email, password)
}
func (a *authStub) Confirm(ctx context.Context, email, code string) error {
	return a.confirmFn(ctx, email, code)
}

type documentsStub struct {
	uploaded map[string][]byte
	deleted  []string
	urlFn    func(string) (string, error)
}

func (d *documentsStub) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	d.uploaded[key] = data
	return nil
}
func (d *documentsStub) Delete(_ context.Context, key string) error {
	d.deleted = append(d.deleted, key)
	return nil
}
func (d *documentsStub) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return d.urlFn(key)
}

const validToken = "valid-token"

func verifyStub(_ context.Context, token string) (types.Identity, error) {
	if token != validToken {
		return types.Identity{}, errors.New("signature mismatch")
	}
	return types.Identity{ID: "user-1", Email: "user@example.org"}, nil
}

type testServer struct {
	svc       *Service
	orch      *orchestratorStub
	auth      *authStub
	documents *documentsStub
}

func newTestServer() *testServer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	orch := &orchestratorStub{}
	auth := &authStub{}
	docs := &documentsStub{uploaded: map[string][]byte{}}
	cookie := securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))

	config := &types.Config{ServerPort: 0, MaxUploadBytes: 1 << 20}
	return &testServer{
		svc:       newService(config, logger, orch, auth, docs, cookie, verifyStub),
		orch:      orch,
		auth:      auth,
		documents: docs,
	}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.svc.Handler().ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) approval.Result {
	t.Helper()
	var res approval.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestStatusFor(t *testing.T) {
	tests := map[approval.Kind]int{
		approval.KindUnauthenticated: http.StatusUnauthorized,
		approval.KindUnauthorized:    http.StatusForbidden,
		approval.KindNotFound:        http.StatusNotFound,
		approval.KindValidation:      http.StatusUnprocessableEntity,
		approval.KindInvalidState:    http.StatusConflict,
		approval.KindPartialUpdate:   http.StatusInternalServerError,
		approval.KindUnexpected:      http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/donations/d1/approve", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/donations/d1/approve", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = ts.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthPlacesIdentityOnContext(t *testing.T) {
	ts := newTestServer()
	ts.orch.approveDonationFn = func(ctx context.Context, id string) approval.Result {
		identity, ok := session.IdentityFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "user-1", identity.ID)
		assert.Equal(t, "d1", id)
		return approval.Result{Success: true}
	}

	rec := ts.do(authed(httptest.NewRequest(http.MethodPost, "/donations/d1/approve", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResult(t, rec).Success)
}

func TestRequireAuthAcceptsSessionCookie(t *testing.T) {
	ts := newTestServer()
	ts.orch.approveDonationFn = func(context.Context, string) approval.Result {
		return approval.Result{Success: true}
	}

	value, err := ts.svc.cookie.Encode(cookieAccessTokenName, validToken)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/donations/d1/approve", nil)
	req.AddCookie(&http.Cookie{Name: cookieAccessTokenName, Value: value})
	rec := ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResultKindMapsToStatus(t *testing.T) {
	ts := newTestServer()
	ts.orch.rejectDonationFn = func(_ context.Context, id, reason string) approval.Result {
		assert.Equal(t, "Damaged in transit", reason)
		return approval.Result{Kind: approval.KindInvalidState, Error: "Donation is approved and cannot be rejected at screening."}
	}

	form := url.Values{"reason": {"Damaged in transit"}}
	req := httptest.NewRequest(http.MethodPost, "/donations/d1/reject", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(authed(req))

	assert.Equal(t, http.StatusConflict, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, approval.KindInvalidState, res.Kind)
}

func TestCreateDonationFromJSON(t *testing.T) {
	ts := newTestServer()
	ts.orch.createDonationFn = func(_ context.Context, in approval.DonationInput) approval.Result {
		assert.Equal(t, "Books", in.Title)
		require.Len(t, in.Items, 1)
		assert.Equal(t, 12, in.Items[0].Quantity)
		return approval.Result{Success: true}
	}

	body := `{"title":"Books","items":[{"name":"Atlas","quantity":12}]}`
	req := httptest.NewRequest(http.MethodPost, "/donations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(authed(req))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateDonationFromForm(t *testing.T) {
	ts := newTestServer()
	ts.orch.createDonationFn = func(_ context.Context, in approval.DonationInput) approval.Result {
		require.Len(t, in.Items, 1)
		assert.Equal(t, "Atlas", in.Items[0].Name)
		return approval.Result{Success: true}
	}

	form := url.Values{"title": {"Books"}, "items[0].name": {"Atlas"}, "items[0].quantity": {"3"}}
	req := httptest.NewRequest(http.MethodPost, "/donations", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(authed(req))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	ts := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/donations", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(authed(req))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingDonationsDefaultsToScreening(t *testing.T) {
	ts := newTestServer()
	var got approval.ReviewStage
	ts.orch.pendingFn = func(_ context.Context, stage approval.ReviewStage) approval.Result {
		got = stage
		return approval.Result{Success: true}
	}

	ts.do(authed(httptest.NewRequest(http.MethodGet, "/donations/pending", nil)))
	assert.Equal(t, approval.StageScreening, got)

	ts.do(authed(httptest.NewRequest(http.MethodGet, "/donations/pending?stage=final", nil)))
	assert.Equal(t, approval.StageFinal, got)
}

func TestDonationsRouteByMethod(t *testing.T) {
	ts := newTestServer()
	listed := false
	ts.orch.donorDonationsFn = func(context.Context) approval.Result {
		listed = true
		return approval.Result{Success: true}
	}

	rec := ts.do(authed(httptest.NewRequest(http.MethodGet, "/donations", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, listed)
}

func TestLoginSetsCookie(t *testing.T) {
	ts := newTestServer()
	ts.auth.authenticateFn = func(_ context.Context, email, password string) (*identity.Token, error) {
		if password != "right" {
			return nil, identity.ErrInvalidCredentials
		}
		return &identity.Token{AccessToken: validToken, ExpiresIn: 3600}, nil
	}

	form := url.Values{"email": {"a@b.org"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	form.Set("password", "right")
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieAccessTokenName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	var token string
	require.NoError(t, ts.svc.cookie.Decode(cookieAccessTokenName, cookies[0].Value, &token))
	assert.Equal(t, validToken, token)
}

func TestRegisterIsAnonymous(t *testing.T) {
	ts := newTestServer()
	ts.orch.registerFn = func(ctx context.Context, in approval.RegisterInput) approval.Result {
		_, ok := session.IdentityFromContext(ctx)
		assert.False(t, ok)
		assert.Equal(t, types.RoleSchool, in.Role)
		return approval.Result{Success: true}
	}

	body := `{"email":"head@school.org","password":"pw","fullName":"Head","role":"school","schoolName":"Hilltop"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConfirmInvalidCode(t *testing.T) {
	ts := newTestServer()
	ts.auth.confirmFn = func(context.Context, string, string) error { return identity.ErrInvalidCode }

	form := url.Values{"email": {"a@b.org"}, "code": {"000"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/confirm", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func multipartDocument(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="document"; filename="id.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	ts := newTestServer()
	var attached string
	ts.orch.attachFn = func(_ context.Context, key string) approval.Result {
		attached = key
		return approval.Result{Success: true, Data: key}
	}

	body, contentType := multipartDocument(t, "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(authed(req))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(attached, "verification/user-1/"))
	assert.True(t, strings.HasSuffix(attached, ".pdf"))
	assert.Equal(t, []byte("%PDF-1.7"), ts.documents.uploaded[attached])
	assert.Empty(t, ts.documents.deleted)
}

func TestUploadDocumentRemovesObjectWhenAttachFails(t *testing.T) {
	ts := newTestServer()
	ts.orch.attachFn = func(context.Context, string) approval.Result {
		return approval.Result{Kind: approval.KindInvalidState, Error: "Verified donors cannot replace their documents."}
	}

	body, contentType := multipartDocument(t, "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(authed(req))

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.Len(t, ts.documents.deleted, 1)
}

func TestUploadDocumentRejectsUnknownType(t *testing.T) {
	ts := newTestServer()

	body, contentType := multipartDocument(t, "text/html")
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(authed(req))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, ts.documents.uploaded)
}

func TestGetDocumentReturnsPresignedURL(t *testing.T) {
	ts := newTestServer()
	ts.orch.documentKeyFn = func(_ context.Context, id string) approval.Result {
		return approval.Result{Success: true, Data: "verification/" + id + "/id.pdf"}
	}
	ts.documents.urlFn = func(key string) (string, error) {
		return "https://bucket.example/" + key, nil
	}

	rec := ts.do(authed(httptest.NewRequest(http.MethodGet, "/documents/d1", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	data := res.Data.(map[string]any)
	assert.Equal(t, "https://bucket.example/verification/d1/id.pdf", data["url"])
}

func TestStripTrailingSlash(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz/", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/healthz", rec.Header().Get("Location"))
}
