package cli

import (
	"errors"
	"testing"

	enginerrors "github.com/canonica-labs/distframe/internal/errors"
)

func TestExitCodeForMapsEngineErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{enginerrors.NewPlanCompileFailed("Scan", errors.New("boom")), ExitPlan},
		{enginerrors.NewWorkerUnavailable(3), ExitExecution},
		{enginerrors.NewRunCancelled("timeout"), ExitCancelled},
		{errors.New("plain error"), ExitInternal},
	}
	for _, tc := range cases {
		if got := exitCodeFor(tc.err); got != tc.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
