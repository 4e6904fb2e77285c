package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
)

// Telegram error types grouped by the domain kind they map to
var (
	invalidPhoneErrors = []string{
		"PHONE_NUMBER_INVALID",
		"PHONE_NUMBER_BANNED",
		"PHONE_NUMBER_UNOCCUPIED",
	}
	invalidCodeErrors = []string{
		"PHONE_CODE_INVALID",
		"PHONE_CODE_EMPTY",
		"PHONE_CODE_HASH_EMPTY",
		"PASSWORD_HASH_INVALID",
	}
	codeExpiredErrors = []string{
		"PHONE_CODE_EXPIRED",
	}
	passwordNeededErrors = []string{
		"SESSION_PASSWORD_NEEDED",
	}
	invalidPeerErrors = []string{
		"PEER_ID_INVALID",
		"CHANNEL_INVALID",
		"CHANNEL_PRIVATE",
		"CHAT_ID_INVALID",
		"USERNAME_INVALID",
		"USERNAME_NOT_OCCUPIED",
		"INPUT_USER_DEACTIVATED",
	}
)

// mapRPCError translates a gotd error into exactly one domain error kind.
// Errors that are not RPC errors (transport, context) pass through.
func mapRPCError(err error) error {
	if err == nil {
		return nil
	}

	if d, ok := tgerr.AsFloodWait(err); ok {
		return domain.NewFloodWait(int(d.Seconds()))
	}
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return domain.ErrPasswordRequired
	}
	if errors.Is(err, auth.ErrPasswordInvalid) {
		return fmt.Errorf("%w: wrong 2fa password", domain.ErrInvalidCode)
	}
	var signUp *auth.SignUpRequired
	if errors.As(err, &signUp) {
		return fmt.Errorf("%w: phone number is not registered", domain.ErrInvalidPhone)
	}

	rpcErr, ok := tgerr.As(err)
	if !ok {
		return err
	}

	switch {
	case rpcErr.IsOneOf(invalidPhoneErrors...):
		return domain.ErrInvalidPhone
	case rpcErr.IsOneOf(invalidCodeErrors...):
		return domain.ErrInvalidCode
	case rpcErr.IsOneOf(codeExpiredErrors...):
		return domain.ErrCodeExpired
	case rpcErr.IsOneOf(passwordNeededErrors...):
		return domain.ErrPasswordRequired
	case rpcErr.IsOneOf(invalidPeerErrors...):
		return domain.ErrInvalidPeer
	}

	return &domain.RPCError{Code: rpcErr.Code, Type: rpcErr.Type, Message: rpcErr.Message}
}

// SendCode requests a login code and returns the challenge token
func (c *MTProtoConnection) SendCode(ctx context.Context) (string, error) {
	client, err := c.ready(ctx)
	if err != nil {
		return "", err
	}

	sent, err := client.Auth().SendCode(ctx, c.phone.String(), auth.SendCodeOptions{})
	if err != nil {
		c.logger.Warn().Err(err).Msg("send code failed")
		return "", mapRPCError(err)
	}

	switch s := sent.(type) {
	case *tg.AuthSentCode:
		c.logger.Info().Msg("verification code sent")
		return s.PhoneCodeHash, nil
	case *tg.AuthSentCodeSuccess:
		return "", domain.ErrAlreadyAuthorized
	default:
		return "", fmt.Errorf("unexpected sent code type %T", sent)
	}
}

// SignIn redeems the verification code. Accounts with 2FA enabled
// return domain.ErrPasswordRequired and keep the half-signed session.
func (c *MTProtoConnection) SignIn(ctx context.Context, code, phoneCodeHash string) (*domain.Profile, error) {
	client, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}

	authorization, err := client.Auth().SignIn(ctx, c.phone.String(), code, phoneCodeHash)
	if err != nil {
		return nil, mapRPCError(err)
	}

	c.logger.Info().Msg("signed in")
	return c.signedInProfile(authorization)
}

// CheckPassword completes the sign-in with the 2FA password
func (c *MTProtoConnection) CheckPassword(ctx context.Context, password string) (*domain.Profile, error) {
	client, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}

	authorization, err := client.Auth().Password(ctx, password)
	if err != nil {
		return nil, mapRPCError(err)
	}

	c.logger.Info().Msg("signed in with 2fa password")
	return c.signedInProfile(authorization)
}

// IsAuthorized reports whether the stored session is signed in
func (c *MTProtoConnection) IsAuthorized(ctx context.Context) (bool, error) {
	client, err := c.ready(ctx)
	if err != nil {
		return false, err
	}

	status, err := client.Auth().Status(ctx)
	if err != nil {
		return false, mapRPCError(err)
	}
	return status.Authorized, nil
}

// LogOut terminates the remote session
func (c *MTProtoConnection) LogOut(ctx context.Context) error {
	api, err := c.rpc(ctx)
	if err != nil {
		return err
	}

	if _, err := api.AuthLogOut(ctx); err != nil {
		return mapRPCError(err)
	}

	c.logger.Info().Msg("logged out")
	return nil
}

func (c *MTProtoConnection) signedInProfile(a *tg.AuthAuthorization) (*domain.Profile, error) {
	user, ok := a.User.AsNotEmpty()
	if !ok {
		return nil, fmt.Errorf("authorization returned an empty user")
	}
	c.markSignedIn(user.ID)
	return profileFromUser(user), nil
}
