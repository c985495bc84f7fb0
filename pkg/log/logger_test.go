package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/YuminosukeSato/regselect/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelDebug)

	logger := p.GetLoggerWithName("trainer").With(ModelNameKey, "Random Forest")
	logger.Info("Best model selected", R2ScoreKey, 0.81)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Best model selected", entry["message"])
	assert.Equal(t, "trainer", entry[ComponentKey])
	assert.Equal(t, "Random Forest", entry[ModelNameKey])
	assert.InDelta(t, 0.81, entry[R2ScoreKey], 1e-12)
}

func TestZerologLogger_ErrorAttachesStackAndDetail(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)

	err := errors.NewStepError("ModelTrainer.SelectBestModel", errors.KindPersistence, fmt.Errorf("disk full"))
	p.GetLogger().Error("Model selection failed", err, OperationKey, OperationPersist)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Contains(t, entry[ErrAttrKey], "disk full")
	assert.NotEmpty(t, entry[StacktraceAttrKey])
	detail, ok := entry[errDetailKey].(map[string]interface{})
	require.True(t, ok, "expected structured error detail")
	assert.Equal(t, "StepError", detail["type"])
	assert.Equal(t, OperationPersist, entry[OperationKey])
}

func TestZerologProvider_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelWarn)
	logger := p.GetLogger()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))

	p.SetLevel(LevelDebug)
	assert.True(t, p.GetLogger().Enabled(context.Background(), LevelDebug))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var valErr *errors.ValidationError
				assert.True(t, errors.As(err, &valErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobalProviderSwap(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo))

	GetLoggerWithName("evaluation").Info("Models have been evaluated")

	assert.True(t, provider.Logger().ContainsMessage("Models have been evaluated"))
	assert.True(t, provider.Logger().ContainsField(ComponentKey, "evaluation"))
}

func TestTestLogger_ErrorFirstField(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	logger.Error("failed", fmt.Errorf("boom"), OperationKey, OperationFit)

	assert.True(t, logger.ContainsField(ErrAttrKey, "boom"))
	assert.True(t, logger.ContainsField(OperationKey, OperationFit))
}

func TestTestLogger_ConcurrentWrites(t *testing.T) {
	logger, buf := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.With("worker", id).Info("candidate fitted")
		}(i)
	}
	wg.Wait()

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 8)
	assert.Equal(t, 8, strings.Count(buf.String(), "\n"))
}
