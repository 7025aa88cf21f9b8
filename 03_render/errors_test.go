package render

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderError(t *testing.T) {
	err := EncodeError("run_ffmpeg", ErrEncodeFailed)
	require.Equal(t, KindEncode, err.Kind)

	err = err.WithDetail("diagnostic", "Invalid data found when processing input")
	assert.EqualError(t, err, "encode error in run_ffmpeg: encode failed: Invalid data found when processing input")
	assert.Equal(t, "Invalid data found when processing input", err.Diagnostic())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		encode   bool
		staging  bool
		sentinel error
	}{
		{
			name:     "zero frames",
			err:      EncodeError("encode", ErrNoFrames),
			kind:     KindEncode,
			encode:   true,
			sentinel: ErrNoFrames,
		},
		{
			name:    "frame write wrapped by caller",
			err:     fmt.Errorf("generate video: %w", StagingError("write_frame", errors.New("disk full"))),
			kind:    KindStaging,
			staging: true,
		},
		{
			name:     "fonts without Vietnamese glyphs",
			err:      CapabilityError("init_rich", fmt.Errorf("%w: bold font has no glyph for \"ữ\"", ErrFontCoverage)),
			kind:     KindCapability,
			sentinel: ErrFontCoverage,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			kind: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.encode, IsEncodeFailure(tt.err))
			assert.Equal(t, tt.staging, IsStagingFailure(tt.err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, tt.err, tt.sentinel)
			}
		})
	}
}
