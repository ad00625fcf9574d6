package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"donorbridge/internal/approval"
	"donorbridge/internal/identity"
	"donorbridge/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

const (
	cookieAccessTokenName = "donorbridge_access_token"
	documentURLTTL        = 5 * time.Minute
)

var decoder = form.NewDecoder()

// orchestrator is the approval surface the handlers drive.
type orchestrator interface {
	ApproveDonation(ctx context.Context, donationID string) approval.Result
	RejectDonation(ctx context.Context, donationID, reason string) approval.Result
	FinalApproveDonation(ctx context.Context, donationID string) approval.Result
	FinalRejectDonation(ctx context.Context, donationID, reason string) approval.Result
	CreateDonation(ctx context.Context, input approval.DonationInput) approval.Result
	MarkDonationDelivered(ctx context.Context, donationID string) approval.Result
	PendingDonations(ctx context.Context, stage approval.ReviewStage) approval.Result
	DonorDonations(ctx context.Context) approval.Result

	ApproveDonor(ctx context.Context, donorID string) approval.Result
	RejectDonor(ctx context.Context, donorID, reason string) approval.Result
	ApproveSchool(ctx context.Context, schoolID string) approval.Result
	RejectSchool(ctx context.Context, schoolID, reason string) approval.Result
	PendingVerifications(ctx context.Context) approval.Result
	AttachDocument(ctx context.Context, key string) approval.Result
	DocumentKey(ctx context.Context, profileID string) approval.Result

	RegisterAccount(ctx context.Context, input approval.RegisterInput) approval.Result
	CreateStaffAccount(ctx context.Context, input approval.StaffInput) approval.Result
	StaffAccounts(ctx context.Context) approval.Result

	CreateApplication(ctx context.Context, input approval.ApplicationInput) approval.Result
	UpdateApplication(ctx context.Context, applicationID string, input approval.ApplicationInput) approval.Result
	SubmitApplication(ctx context.Context, applicationID string) approval.Result
	ApproveApplication(ctx context.Context, applicationID string) approval.Result
	RejectApplication(ctx context.Context, applicationID, reason string) approval.Result
	SchoolApplications(ctx context.Context) approval.Result

	ProposeMatch(ctx context.Context, input approval.MatchInput) approval.Result
	CandidateMatches(ctx context.Context, donationID string) approval.Result
	AllocateDonation(ctx context.Context, donationID, notes string) approval.Result
	ApproveMatch(ctx context.Context, matchID, notes string) approval.Result
	RejectMatch(ctx context.Context, matchID, reason string) approval.Result
}

type authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*identity.Token, error)
	Confirm(ctx context.Context, email, code string) error
}

type documentStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// tokenVerifier validates an access token and returns the identity it names.
type tokenVerifier func(ctx context.Context, token string) (types.Identity, error)

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	approval  orchestrator
	auth      authenticator
	documents documentStore
	cookie    *securecookie.SecureCookie
	verify    tokenVerifier

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	orch orchestrator,
	auth authenticator,
	documents documentStore,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}

	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	s := newService(config, logger, orch, auth, documents, securecookie.New(hashKey, blockKey), jwksVerifier(jwkCache, jwksURL))
	return s, nil
}

func newService(
	config *types.Config,
	logger *logrus.Logger,
	orch orchestrator,
	auth authenticator,
	documents documentStore,
	cookie *securecookie.SecureCookie,
	verify tokenVerifier,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:    logger,
		config:    config,
		approval:  orch,
		auth:      auth,
		documents: documents,
		cookie:    cookie,
		verify:    verify,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	// flow only runs middleware for matched routes
	s.server.Handler = s.StripTrailingSlash(mux)

	return s
}

// jwksVerifier checks tokens against the identity provider's published keys.
func jwksVerifier(cache *jwk.Cache, jwksURL string) tokenVerifier {
	return func(ctx context.Context, accessToken string) (types.Identity, error) {
		set, err := cache.Lookup(ctx, jwksURL)
		if err != nil {
			return types.Identity{}, fmt.Errorf("failed to fetch JWKS: %w", err)
		}

		token, err := jwt.Parse([]byte(accessToken), jwt.WithKeySet(set), jwt.WithValidate(true))
		if err != nil {
			return types.Identity{}, fmt.Errorf("failed to parse JWT: %w", err)
		}

		userID, ok := token.Subject()
		if !ok || userID == "" {
			return types.Identity{}, fmt.Errorf("no user ID in JWT subject claim")
		}

		var email string
		_ = token.Get("email", &email) // access tokens may omit email

		return types.Identity{ID: userID, Email: email}, nil
	}
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/auth/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/auth/confirm", s.handlePostConfirm, http.MethodPost)
	r.HandleFunc("/auth/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/auth/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/donations", s.handleGetDonations, http.MethodGet)
		r.HandleFunc("/donations", s.handlePostDonation, http.MethodPost)
		r.HandleFunc("/donations/pending", s.handleGetPendingDonations, http.MethodGet)
		r.HandleFunc("/donations/:id/approve", s.handlePostApproveDonation, http.MethodPost)
		r.HandleFunc("/donations/:id/reject", s.handlePostRejectDonation, http.MethodPost)
		r.HandleFunc("/donations/:id/final-approve", s.handlePostFinalApproveDonation, http.MethodPost)
		r.HandleFunc("/donations/:id/final-reject", s.handlePostFinalRejectDonation, http.MethodPost)
		r.HandleFunc("/donations/:id/deliver", s.handlePostDeliverDonation, http.MethodPost)
		r.HandleFunc("/donations/:id/matches", s.handleGetCandidateMatches, http.MethodGet)
		r.HandleFunc("/donations/:id/allocate", s.handlePostAllocateDonation, http.MethodPost)

		r.HandleFunc("/matches", s.handlePostMatch, http.MethodPost)
		r.HandleFunc("/matches/:id/approve", s.handlePostApproveMatch, http.MethodPost)
		r.HandleFunc("/matches/:id/reject", s.handlePostRejectMatch, http.MethodPost)

		r.HandleFunc("/verifications/pending", s.handleGetPendingVerifications, http.MethodGet)
		r.HandleFunc("/donors/:id/approve", s.handlePostApproveDonor, http.MethodPost)
		r.HandleFunc("/donors/:id/reject", s.handlePostRejectDonor, http.MethodPost)
		r.HandleFunc("/schools/:id/approve", s.handlePostApproveSchool, http.MethodPost)
		r.HandleFunc("/schools/:id/reject", s.handlePostRejectSchool, http.MethodPost)
		r.HandleFunc("/documents", s.handlePostDocument, http.MethodPost)
		r.HandleFunc("/documents/:id", s.handleGetDocument, http.MethodGet)

		r.HandleFunc("/staff", s.handleGetStaff, http.MethodGet)
		r.HandleFunc("/staff", s.handlePostStaff, http.MethodPost)

		r.HandleFunc("/applications", s.handleGetApplications, http.MethodGet)
		r.HandleFunc("/applications", s.handlePostApplication, http.MethodPost)
		r.HandleFunc("/applications/:id", s.handlePostUpdateApplication, http.MethodPost)
		r.HandleFunc("/applications/:id/submit", s.handlePostSubmitApplication, http.MethodPost)
		r.HandleFunc("/applications/:id/approve", s.handlePostApproveApplication, http.MethodPost)
		r.HandleFunc("/applications/:id/reject", s.handlePostRejectApplication, http.MethodPost)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
