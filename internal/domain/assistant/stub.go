package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	defaultMinLatency = 1500 * time.Millisecond
	defaultMaxLatency = 2000 * time.Millisecond
	defaultSeed       = 42
	maxDecomposed     = 8
	lightCap          = 3
)

var sampleTranscripts = []string{
	"I need to clean the kitchen but it feels overwhelming. Also have to call mom and finish that report for work.",
	"Feeling scattered today. Should probably drink more water and take a walk. Also need to respond to emails.",
	"I keep forgetting to do laundry. And I need to schedule that dentist appointment I've been putting off.",
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?;\n]+`)
	clauseSplit   = regexp.MustCompile(`(?i)\s*(?:,|\band\b|\balso\b|\bbut\b|\bthen\b)\s*`)
	fillerPrefix  = regexp.MustCompile(`(?i)^(?:i\s+)?(?:really\s+)?(?:need to|have to|should probably|should|must|want to|keep forgetting to|gotta)\s+`)
)

// Option applies a configuration option to the Stub.
type Option func(*Stub)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Stub) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed fixes the random source used for latency and canned transcripts.
func WithSeed(seed int64) Option {
	return func(s *Stub) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic placeholder output
	}
}

// Stub is a stand-in for a remote speech and language model. Its outputs are
// placeholders; only the contracts are meaningful.
type Stub struct {
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewStub creates a Stub with configuration options.
func NewStub(opts ...Option) *Stub {
	s := &Stub{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultSeed)), //nolint:gosec // deterministic placeholder output
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcribe returns a canned transcript for non-empty audio.
func (s *Stub) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: %w", ErrEmptyInput)
	}
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	i := s.rng.Intn(len(sampleTranscripts))
	s.mu.Unlock()
	return sampleTranscripts[i], nil
}

// AdjustTone tidies text and frames it in the requested tone.
func (s *Stub) AdjustTone(ctx context.Context, text string, tone Tone) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("adjust tone: %w", ErrEmptyInput)
	}
	if _, err := ParseTone(string(tone)); err != nil {
		return "", err
	}
	if err := s.wait(ctx); err != nil {
		return "", err
	}

	out := sentence(text)
	switch tone {
	case ToneFriendly:
		out = "Hey! " + out + " Let me know what you think."
	case ToneAssertive:
		out = strings.NewReplacer("I think ", "", "maybe ", "", "Maybe ", "", "just ", "").Replace(out)
		out = sentence(out)
	}
	return out, nil
}

// Decompose splits text into clauses and expands them according to level.
func (s *Stub) Decompose(ctx context.Context, text string, level Spiciness) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("decompose: %w", ErrEmptyInput)
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: spiciness %d", ErrInvalidInput, int(level))
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	items := clauses(text)
	if len(items) == 0 {
		items = []string{upperFirst(text)}
	}

	var out []string
	switch {
	case level == SpicyLight:
		out = items
		if len(out) > lightCap {
			out = out[:lightCap]
		}
	case level == SpicyMedium:
		out = items
	default:
		if level >= SpicyInferno {
			out = append(out, "Set a five minute timer")
		}
		for _, it := range items {
			out = append(out, "Get set up to "+lowerFirst(it))
			out = append(out, it)
			if level >= SpicyExtraHot {
				out = append(out, "Tick off: "+lowerFirst(it))
			}
		}
	}
	if len(out) > maxDecomposed {
		out = out[:maxDecomposed]
	}
	return out, nil
}

func (s *Stub) wait(ctx context.Context) error {
	latency := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		s.mu.Lock()
		latency += time.Duration(s.rng.Int63n(int64(span)))
		s.mu.Unlock()
	}
	if latency == 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return nil
	}
	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-t.C:
		return nil
	}
}

func clauses(text string) []string {
	var out []string
	for _, sent := range sentenceSplit.Split(text, -1) {
		for _, c := range clauseSplit.Split(sent, -1) {
			c = strings.TrimSpace(fillerPrefix.ReplaceAllString(strings.TrimSpace(c), ""))
			low := strings.ToLower(c)
			if len(strings.Fields(c)) < 2 || strings.HasPrefix(low, "feel") || strings.HasPrefix(low, "it feels") {
				continue
			}
			out = append(out, upperFirst(c))
		}
	}
	return out
}

func sentence(s string) string {
	s = upperFirst(strings.TrimSpace(s))
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// lowerFirst lowercases the first rune unless it is the pronoun "I".
func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || (r == 'I' && (len(s) == 1 || s[1] == ' ' || s[1] == '\'')) {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
