package directory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// Cognito implements Client against a hosted Cognito user pool. The sign-up
// APIs are unauthenticated, so the client runs with anonymous credentials;
// the pool is addressed purely by region and app client id.
type Cognito struct {
	api      *cognito.Client
	clientID string
}

func NewCognito(ctx context.Context, region, clientID string) (*Cognito, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Printf("cognito directory client initialized region=%s", region)

	return &Cognito{
		api:      cognito.NewFromConfig(cfg),
		clientID: clientID,
	}, nil
}

func (c *Cognito) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	attrs := make([]types.AttributeType, 0, len(in.Attributes))
	for _, a := range in.Attributes {
		attrs = append(attrs, types.AttributeType{
			Name:  aws.String(a.Name),
			Value: aws.String(a.Value),
		})
	}

	out, err := c.api.SignUp(ctx, &cognito.SignUpInput{
		ClientId:       aws.String(c.clientID),
		Username:       aws.String(in.Username),
		Password:       aws.String(in.Password),
		UserAttributes: attrs,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}

	sub := ""
	if out.UserSub != nil {
		sub = *out.UserSub
	}
	return &Account{
		Username:  in.Username,
		Sub:       sub,
		Confirmed: out.UserConfirmed,
	}, nil
}

func (c *Cognito) ConfirmRegistration(ctx context.Context, username, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognito.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	})
	return mapCognitoError(err)
}

func (c *Cognito) ResendConfirmationCode(ctx context.Context, username string) error {
	_, err := c.api.ResendConfirmationCode(ctx, &cognito.ResendConfirmationCodeInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(username),
	})
	return mapCognitoError(err)
}

// VerifyAttribute needs a post-authentication access token on Cognito, which
// this unauthenticated sign-up surface never holds. Deployments on the
// Cognito directory must run the verification flow in confirm-registration
// mode instead.
func (c *Cognito) VerifyAttribute(ctx context.Context, username, attribute, code string) error {
	return ErrUnsupportedVerify
}

func mapCognitoError(err error) error {
	if err == nil {
		return nil
	}

	var usernameExists *types.UsernameExistsException
	if errors.As(err, &usernameExists) {
		return ErrAccountExists
	}
	var userNotFound *types.UserNotFoundException
	if errors.As(err, &userNotFound) {
		return ErrAccountNotFound
	}
	var codeMismatch *types.CodeMismatchException
	if errors.As(err, &codeMismatch) {
		return ErrCodeMismatch
	}
	var codeExpired *types.ExpiredCodeException
	if errors.As(err, &codeExpired) {
		return ErrCodeExpired
	}
	var limitExceeded *types.LimitExceededException
	if errors.As(err, &limitExceeded) {
		return ErrResendCooldown
	}
	var tooManyFailed *types.TooManyFailedAttemptsException
	if errors.As(err, &tooManyFailed) {
		return ErrTooManyAttempts
	}

	return err
}
