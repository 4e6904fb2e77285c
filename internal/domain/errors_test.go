package domain

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

func TestFloodWaitError(t *testing.T) {
	err := fmt.Errorf("send code: %w", NewFloodWait(30))

	if !errors.Is(err, ErrFloodWait) {
		t.Error("errors.Is(err, ErrFloodWait) = false")
	}

	var fw *FloodWaitError
	if !errors.As(err, &fw) || fw.Seconds != 30 {
		t.Fatalf("errors.As() did not expose seconds, got %+v", fw)
	}

	if seconds, ok := pkgerrors.RetryAfter(err); !ok || seconds != 30 {
		t.Errorf("RetryAfter() = %d, %v", seconds, ok)
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrInvalidPhone, ErrInvalidCode, ErrCodeExpired, ErrPasswordRequired, ErrInvalidPeer, ErrNotPooled}

	for i, a := range kinds {
		for j, b := range kinds {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v must not match %v", a, b)
			}
		}
	}
}
