package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerator_Censors_Plain_Word(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	out, found := m.Censor("this is a badword here")
	req.Equal("this is a ******* here", out)
	req.Equal([]string{"badword"}, found)
}

func TestModerator_Censors_Leet_And_Case(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	out, found := m.Censor("B4dW0rd")
	req.Equal("*******", out)
	req.Len(found, 1)
}

func TestModerator_Leaves_Clean_Text_Untouched(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	out, found := m.Censor("perfectly fine message")
	req.Equal("perfectly fine message", out)
	req.Empty(found)
}

func TestDetectLang(t *testing.T) {
	req := require.New(t)

	lang := DetectLang("the quick brown fox jumps over the lazy dog and keeps running through the field")
	req.Equal("en", lang)

	// Too short to be reliable
	req.Equal("", DetectLang("ok"))
}
