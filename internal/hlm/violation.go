package hlm

import (
	"github.com/rs/zerolog"

	hlmerrors "github.com/23skdu/hlm/internal/errors"
	"github.com/23skdu/hlm/internal/metrics"
)

// violate reports a broken lock hierarchy invariant and panics. These are
// caller bugs, never runtime conditions, so there is no error return.
func violate(logger zerolog.Logger, err *hlmerrors.StructuredError) {
	metrics.ViolationsTotal.WithLabelValues(string(err.Type)).Inc()
	ev := logger.Error().Str("type", string(err.Type)).Str("op", err.Operation)
	for k, v := range err.Context {
		ev = ev.Interface(k, v)
	}
	ev.Msg(err.Message)
	panic(err)
}
