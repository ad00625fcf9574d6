// Package identity talks to the Cognito user pool: sign-up, staff
// provisioning, sign-in and sign-up confirmation.
package identity

import (
	"context"
	"errors"
	"fmt"

	"donorbridge/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCode        = errors.New("invalid confirmation code")
)

type cognitoAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	AdminCreateUser(ctx context.Context, params *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// Token is the result of a successful sign-in.
type Token struct {
	AccessToken string
	ExpiresIn   int
}

type Cognito struct {
	client     cognitoAPI
	clientID   string
	userPoolID string
	logger     *logrus.Logger
}

func NewCognito(client cognitoAPI, config *types.Config, logger *logrus.Logger) *Cognito {
	return &Cognito{
		client:     client,
		clientID:   config.CognitoClientID,
		userPoolID: config.CognitoUserPoolID,
		logger:     logger,
	}
}

// SignUp registers a self-service account and returns its subject id.
func (c *Cognito) SignUp(ctx context.Context, email, password, fullName string) (string, error) {
	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email), // use email as username
		Password: aws.String(password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(fullName)},
		},
	}

	out, err := c.client.SignUp(ctx, input)
	if err != nil {
		return "", c.mapSignUpError(err)
	}

	if out.UserSub == nil {
		return "", fmt.Errorf("cognito sign up returned no user sub")
	}

	return aws.ToString(out.UserSub), nil
}

// CreateStaff provisions an admin or approver. Cognito emails the temporary
// password.
func (c *Cognito) CreateStaff(ctx context.Context, email, fullName string) (string, error) {
	input := &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
			{Name: aws.String("name"), Value: aws.String(fullName)},
		},
		DesiredDeliveryMediums: []ctypes.DeliveryMediumType{ctypes.DeliveryMediumTypeEmail},
	}

	out, err := c.client.AdminCreateUser(ctx, input)
	if err != nil {
		return "", c.mapSignUpError(err)
	}

	if out.User != nil {
		for _, attr := range out.User.Attributes {
			if aws.ToString(attr.Name) == "sub" {
				return aws.ToString(attr.Value), nil
			}
		}
	}

	return "", fmt.Errorf("cognito admin create user returned no sub attribute")
}

func (c *Cognito) Confirm(ctx context.Context, email, code string) error {
	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	}

	_, err := c.client.ConfirmSignUp(ctx, input)
	if err != nil {
		var codeMismatch *ctypes.CodeMismatchException
		var expired *ctypes.ExpiredCodeException
		if errors.As(err, &codeMismatch) || errors.As(err, &expired) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to confirm sign up: %w", err)
	}

	return nil
}

func (c *Cognito) Authenticate(ctx context.Context, email, password string) (*Token, error) {
	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	}

	resp, err := c.client.InitiateAuth(ctx, input)
	if err != nil {
		var notAuthorized *ctypes.NotAuthorizedException
		var notFound *ctypes.UserNotFoundException
		var notConfirmed *ctypes.UserNotConfirmedException
		if errors.As(err, &notAuthorized) || errors.As(err, &notFound) || errors.As(err, &notConfirmed) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to initiate auth: %w", err)
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		return nil, ErrInvalidCredentials
	}

	return &Token{
		AccessToken: aws.ToString(resp.AuthenticationResult.AccessToken),
		ExpiresIn:   int(resp.AuthenticationResult.ExpiresIn),
	}, nil
}

func (c *Cognito) mapSignUpError(err error) error {
	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		return types.ErrInvalidPassword
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		return types.ErrIdentityExists
	}

	c.logger.WithError(err).Error("unhandled cognito signup error")

	return fmt.Errorf("failed to create identity: %w", err)
}
