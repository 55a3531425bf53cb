package audio

import (
	"fmt"
	"math"
	"strings"
)

// Synthesizer is the local fallback speech generator. It does not speak:
// it renders the reply as syllable-paced tones so the client still has
// something to play when the TTS service is down. Deterministic for a
// given input.
type Synthesizer struct {
	sampleRate int
}

const defaultSampleRate = 16000

// NewSynthesizer returns a fallback synthesizer at the given sample rate,
// or 16 kHz when rate is zero.
func NewSynthesizer(sampleRate int) *Synthesizer {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return &Synthesizer{sampleRate: sampleRate}
}

// Synthesize renders text into a WAV buffer.
func (s *Synthesizer) Synthesize(text string) ([]byte, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, fmt.Errorf("cannot synthesize empty text")
	}

	// Cap output length so a long reply cannot allocate unbounded audio.
	const maxWords = 200
	if len(words) > maxWords {
		words = words[:maxWords]
	}

	var samples []int16
	gap := make([]int16, s.sampleRate/12) // ~80ms of silence between words

	for _, word := range words {
		samples = append(samples, s.renderWord(word)...)
		samples = append(samples, gap...)
	}

	return EncodeWAV(samples, s.sampleRate)
}

// SampleRate reports the output rate, used for duration estimates.
func (s *Synthesizer) SampleRate() int {
	return s.sampleRate
}

// renderWord produces one tone per word. Pitch is derived from the word
// itself and length from a rough syllable count, which gives replies a
// speech-like cadence.
func (s *Synthesizer) renderWord(word string) []int16 {
	syllables := countSyllables(word)
	duration := 0.09 + 0.06*float64(syllables) // seconds
	freq := 160.0 + float64(hashWord(word)%24)*12.0

	n := int(duration * float64(s.sampleRate))
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / float64(s.sampleRate)
		// Attack/decay envelope avoids clicks at tone boundaries.
		env := envelope(i, n)
		out[i] = int16(env * 0.35 * math.MaxInt16 * math.Sin(2*math.Pi*freq*t))
	}
	return out
}

func envelope(i, n int) float64 {
	ramp := n / 8
	if ramp == 0 {
		return 1
	}
	switch {
	case i < ramp:
		return float64(i) / float64(ramp)
	case i > n-ramp:
		return float64(n-i) / float64(ramp)
	default:
		return 1
	}
}

func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range strings.ToLower(word) {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if count == 0 {
		count = 1
	}
	return count
}

func hashWord(word string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(word); i++ {
		h ^= uint32(word[i])
		h *= 16777619
	}
	return h
}
