package speech

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine answers from memory
type fakeEngine struct {
	mu     sync.Mutex
	voices []Voice
	spoken []Utterance
}

func (f *fakeEngine) utterances() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Utterance(nil), f.spoken...)
}

func (f *fakeEngine) Voices(context.Context) ([]Voice, error) {
	return f.voices, nil
}

func (f *fakeEngine) Synthesize(_ context.Context, u Utterance) (Clip, error) {
	if err := u.Validate(); err != nil {
		return Clip{}, err
	}
	if u.VoiceID != "" {
		if _, err := FindVoice(f.voices, u.VoiceID); err != nil {
			return Clip{}, err
		}
	}
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.mu.Unlock()
	return Clip{Text: u.Text, ContentType: ContentTypeWAV, Audio: []byte("RIFF" + u.Text)}, nil
}

func testVoices() []Voice {
	return []Voice{
		{ID: "en-us-amy", Name: "Amy", Lang: "en-US"},
		{ID: "en-gb-brian", Name: "Brian", Lang: "en-GB", Default: true},
		{ID: "fr-fr-celine", Name: "Celine", Lang: "fr-FR"},
	}
}

func TestVolumeIcon(t *testing.T) {
	tests := []struct {
		value int
		icon  Icon
	}{
		{100, 3}, {67, 3}, {66, 2}, {34, 2}, {33, 1}, {1, 1}, {0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.icon, NewVolume(tt.value).Icon(), "volume %d", tt.value)
	}
	assert.Equal(t, "icons/volume-level-2.svg", Icon(2).Path())
}

func TestVolumeClampAndGain(t *testing.T) {
	assert.Equal(t, Volume(0), NewVolume(-5))
	assert.Equal(t, Volume(100), NewVolume(250))
	assert.InDelta(t, 0.42, NewVolume(42).Gain(), 1e-12)
	assert.InDelta(t, 1.0, Volume(100).Gain(), 1e-12)
	assert.InDelta(t, 0.0, Volume(0).Gain(), 1e-12)
}

func TestUtteranceValidate(t *testing.T) {
	assert.NoError(t, Utterance{Text: "hi", Volume: 0.5}.Validate())
	assert.ErrorIs(t, Utterance{Volume: 0.5}.Validate(), ErrEmptyText)
	assert.ErrorIs(t, Utterance{Text: "hi", Volume: 1.5}.Validate(), ErrVolumeRange)
	assert.ErrorIs(t, Utterance{Text: "hi", Volume: -0.1}.Validate(), ErrVolumeRange)
}

func TestOptions(t *testing.T) {
	opts := Options(testVoices(), "fr-fr-celine")
	require.Len(t, opts, 4)

	assert.Equal(t, PlaceholderValue, opts[0].Value)
	assert.Equal(t, "Choose voice", opts[0].Label)
	assert.True(t, opts[0].Disabled)
	assert.False(t, opts[0].Selected)

	assert.Equal(t, "en-us-amy", opts[1].Value)
	assert.Equal(t, "Amy (en-US)", opts[1].Label)
	assert.Equal(t, "Brian (en-GB) -- DEFAULT", opts[2].Label)
	assert.True(t, opts[3].Selected)

	// each option maps back to exactly its own voice
	for _, o := range opts[1:] {
		v, err := FindVoice(testVoices(), o.Value)
		require.NoError(t, err)
		assert.Equal(t, o.Name, v.Name)
	}

	none := Options(nil, "")
	require.Len(t, none, 1)
	assert.True(t, none[0].Selected)
}

func TestFindAndDefaultVoice(t *testing.T) {
	_, err := FindVoice(testVoices(), "nope")
	assert.ErrorIs(t, err, ErrUnknownVoice)

	v, ok := DefaultVoice(testVoices())
	assert.True(t, ok)
	assert.Equal(t, "en-us-amy", v.ID)

	_, ok = DefaultVoice(nil)
	assert.False(t, ok)
}

func TestDisabled(t *testing.T) {
	var e Engine = Disabled{}
	_, err := e.Voices(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = e.Synthesize(context.Background(), Utterance{Text: "x", Volume: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
}
