package danmu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSanitizer() *Service {
	return &Service{maxLength: 100}
}

func TestSanitizeStripsHTML(t *testing.T) {
	s := newSanitizer()
	got, err := s.Sanitize("前方<b>高能</b>预警")
	require.NoError(t, err)
	assert.Equal(t, "前方高能预警", got)
}

func TestSanitizeRejectsDangerousContent(t *testing.T) {
	s := newSanitizer()
	for _, bad := range []string{
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"点我 onclick=x",
		"iframe 注入",
	} {
		_, err := s.Sanitize(bad)
		assert.Error(t, err, "应拒绝: %s", bad)
	}
}

func TestSanitizeRejectsEmpty(t *testing.T) {
	s := newSanitizer()
	_, err := s.Sanitize("   ")
	assert.Error(t, err)

	// 标签剥掉之后为空同样拒绝
	_, err = s.Sanitize("<br/>")
	assert.Error(t, err)
}

func TestSanitizeCapsLength(t *testing.T) {
	s := newSanitizer()
	got, err := s.Sanitize(strings.Repeat("哈", 200))
	require.NoError(t, err)
	assert.Equal(t, 100, len([]rune(got)))
}
