package nakama

import (
	"context"
	"database/sql"
	"fmt"

	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"lastarena/internal/app/onboarding"
	"lastarena/internal/config"
	"lastarena/internal/ports"
)

type afterAuthenticateDevice func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error

// newAfterAuthenticateDevice returns the hook that onboards accounts created by
// device authentication.
func newAfterAuthenticateDevice(cfg config.ArenaConfig) afterAuthenticateDevice {
	kit := onboarding.StarterKit{
		Loadout: ports.Loadout{Kit: cfg.Loadout.DefaultKit, Items: cfg.Loadout.DefaultItems},
		Tokens:  cfg.Loadout.StarterTokens,
	}
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
		if !out.GetCreated() {
			return nil
		}

		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			resolvedID, err := extractUserIDFromToken(out.GetToken())
			if err != nil {
				logger.Error("AfterAuthenticateDevice: Failed to extract user ID from token: %v", err)
				return err
			}
			userID = resolvedID
		}

		logger.Info("Onboarding new user %s", userID)

		service := onboarding.NewService(
			NewNakamaAccountAdapter(nk),
			NewNakamaStarterKitAdapter(nk, cfg.Rewards.Currency),
			kit,
			nil,
		)
		result, err := service.OnboardNewUser(ctx, userID)
		if result.ProfileUpdateErr != nil {
			logger.Warn("AfterAuthenticateDevice: Failed to update profile for user %s: %v", userID, result.ProfileUpdateErr)
		}
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Onboarding failed for user %s: %v", userID, err)
			return err
		}
		if !result.StarterKitGranted {
			logger.Info("AfterAuthenticateDevice: Starter kit already granted for user %s", userID)
		}
		return nil
	}
}

// extractUserIDFromToken reads the uid claim of a Nakama session token. The
// token was just issued by Nakama, so its signature is not checked.
func extractUserIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("token claims missing uid")
	}
	return uid, nil
}
