package nakama

import (
	"testing"

	jwt "github.com/form3tech-oss/jwt-go"
)

func sessionToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestExtractUserIDFromToken(t *testing.T) {
	uid, err := extractUserIDFromToken(sessionToken(t, jwt.MapClaims{"uid": "user-1", "usn": "alice"}))
	if err != nil || uid != "user-1" {
		t.Fatalf("extractUserIDFromToken() = %q/%v, want user-1", uid, err)
	}

	if _, err := extractUserIDFromToken(sessionToken(t, jwt.MapClaims{"usn": "alice"})); err == nil {
		t.Fatalf("expected error for token without uid")
	}
	if _, err := extractUserIDFromToken("not-a-token"); err == nil {
		t.Fatalf("expected error for garbage token")
	}
}
