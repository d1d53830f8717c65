package service

import (
	"fmt"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/text"
)

// interpretResponse turns the server verdict into a completion result.
//
// Outside compatibility mode a server that does not speak a newer protocol
// than ours is rejected before its result code is even considered; old
// servers produce result codes this interpreter would misread.
func (s *AuthenticationService) interpretResponse(secretType domain.SecretType, response *domain.ServerResponse, serverVersion int) domain.CompleteResult {
	if !s.Config.CompatibilityMode && serverVersion <= s.Config.ProtocolVersion {
		s.Logger.Error("server protocol version not supported", "server_version", serverVersion)
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteInvalidResponse, text.AuthErrorTitle, text.InvalidProtocol,
			fmt.Sprintf("v%d", serverVersion)))
	}

	switch response.Code {
	case domain.ResultSuccess:
		return domain.CompleteSuccess()

	case domain.ResultInvalidResponse:
		return domain.CompleteFailed(s.invalidResponseFailure(secretType, response.AttemptsLeft))

	case domain.ResultInvalidRequest:
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteInvalidRequest, text.RequestTitle, text.InvalidRequest))

	case domain.ResultInvalidChallenge:
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteInvalidChallenge, text.ChallengeTitle, text.ChallengeInvalid))

	case domain.ResultInvalidUserID:
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteInvalidUser, text.AccountTitle, text.AccountInvalid))

	case domain.ResultAccountBlocked:
		return domain.CompleteFailed(s.blockedFailure(response.Duration))

	default:
		return domain.CompleteFailed(s.completeFailure(
			domain.CompleteUnknown, text.UnknownErrTitle, text.UnknownError))
	}
}

// invalidResponseFailure branches on how many attempts the server says are
// left. Zero or fewer means the account is now blocked; the server just has
// not said so with ACCOUNT_BLOCKED yet.
func (s *AuthenticationService) invalidResponseFailure(secretType domain.SecretType, attemptsLeft *int) domain.CompleteFailure {
	if attemptsLeft == nil {
		return s.completeFailure(domain.CompleteInvalidResponse, text.AuthErrorTitle, text.InvalidResponse)
	}

	attempts := *attemptsLeft
	switch {
	case attempts > 1:
		failure := s.completeFailure(domain.CompleteInvalidResponse, s.credentialTitle(secretType), s.attemptsKey(secretType, false), attempts)
		failure.RemainingAttempts = attemptsLeft
		return failure
	case attempts == 1:
		failure := s.completeFailure(domain.CompleteInvalidResponse, s.credentialTitle(secretType), s.attemptsKey(secretType, true))
		failure.RemainingAttempts = attemptsLeft
		return failure
	default:
		return s.completeFailure(domain.CompleteAccountBlocked, text.BlockedTitle, text.Blocked)
	}
}

// blockedFailure distinguishes a temporary lockout, which carries a
// duration in minutes, from a permanent one.
func (s *AuthenticationService) blockedFailure(duration *int) domain.CompleteFailure {
	if duration != nil {
		failure := s.completeFailure(domain.CompleteAccountTemporaryBlocked, text.TempBlockedTitle, text.TempBlocked, *duration)
		failure.Duration = duration
		return failure
	}
	return s.completeFailure(domain.CompleteAccountBlocked, text.BlockedTitle, text.Blocked)
}

func (s *AuthenticationService) credentialTitle(secretType domain.SecretType) text.Key {
	if secretType == domain.SecretTypeBiometric {
		return text.BiometricTitle
	}
	return text.PINTitle
}

func (s *AuthenticationService) attemptsKey(secretType domain.SecretType, last bool) text.Key {
	switch {
	case secretType == domain.SecretTypeBiometric && last:
		return text.BiometricOneAttemptLeft
	case secretType == domain.SecretTypeBiometric:
		return text.BiometricAttemptsLeft
	case last:
		return text.PINOneAttemptLeft
	default:
		return text.PINAttemptsLeft
	}
}
