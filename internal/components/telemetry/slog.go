package telemetry

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
)

// SlogAPI writes reports to the default slog logger.
type SlogAPI struct{}

// attrs flattens params into `p0`, `p1`, ... attributes. Errors are logged by
// their message so handlers do not try to serialize them as structs.
func attrs(params []any, prefix ...any) []any {
	out := append([]any{}, prefix...)
	for i, p := range params {
		if err, ok := p.(error); ok {
			p = err.Error()
		}
		out = append(out, "p"+strconv.Itoa(i), p)
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken", attrs(params, "id", id)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs(params, "id", id)...)
}

func (SlogAPI) ReportDebug(msg string, params ...any) {
	slog.Debug(msg, attrs(params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}

// InitSlog sets a colored stderr handler as the default logger, debug reports
// are only shown when verbose is set.
func InitSlog(verbose bool) {
	opts := &tint.Options{Level: slog.LevelInfo, TimeFormat: time.TimeOnly}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, opts)))
}
