package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := Wrap(CodeNotFound, "file missing", fmt.Errorf("open t.xml: no such file"))
	wrapped := fmt.Errorf("artifact: %w", base)

	require.True(t, IsCode(wrapped, CodeNotFound))
	require.False(t, IsCode(wrapped, CodeNotGenerated))
	require.Equal(t, "file missing", MessageOf(wrapped))
	require.Contains(t, base.Error(), "no such file")
}

func TestMessageOfPlainError(t *testing.T) {
	require.Equal(t, "", MessageOf(nil))
	require.Equal(t, "boom", MessageOf(fmt.Errorf("boom")))
}
