package captcha

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ImageQuestion is the prompt shown next to image challenges.
const ImageQuestion = "Enter the characters shown"

// Alphabets are the character sources of image challenges. Both exclude
// glyphs that are easy to confuse (I/1, O/0, l, i, o).
type Alphabets struct {
	Upper string
	Mixed string
}

var DefaultAlphabets = Alphabets{
	Upper: "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
	Mixed: "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789",
}

// Challenge is what the caller may show to an end user. The expected answer
// never leaves the store.
type Challenge struct {
	ID       string
	Type     Type
	Question string
	// Image holds PNG bytes for image challenges and is nil otherwise.
	Image []byte
}

type mathRange struct {
	lo, hi int
	ops    string
}

var mathRanges = map[Difficulty]mathRange{
	DifficultyEasy:   {lo: 1, hi: 10, ops: "+"},
	DifficultyMedium: {lo: 5, hi: 20, ops: "+-"},
	DifficultyHard:   {lo: 10, hi: 99, ops: "+-*"},
}

// Generator creates challenges and registers their answers in a Store.
type Generator struct {
	store     Store
	renderer  Renderer
	alphabets Alphabets
	intn      intnFunc
	newID     func() (string, error)
	log       *zap.Logger
}

type GeneratorOption func(*Generator)

func WithRenderer(r Renderer) GeneratorOption {
	return func(g *Generator) {
		if r != nil {
			g.renderer = r
		}
	}
}

// WithAlphabets overrides the image alphabets; empty fields keep the defaults.
func WithAlphabets(a Alphabets) GeneratorOption {
	return func(g *Generator) {
		if a.Upper != "" {
			g.alphabets.Upper = a.Upper
		}
		if a.Mixed != "" {
			g.alphabets.Mixed = a.Mixed
		}
	}
}

func WithGeneratorLogger(log *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if log != nil {
			g.log = log
		}
	}
}

func NewGenerator(store Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:     store,
		alphabets: DefaultAlphabets,
		intn:      cryptoIntn,
		newID:     NewID,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.renderer == nil {
		g.renderer = NewGGRenderer()
	}
	return g
}

// Generate builds a challenge for the given settings snapshot and stores its
// answer for settings.ExpirySeconds. Store failures are returned as is.
func (g *Generator) Generate(ctx context.Context, settings Settings) (*Challenge, error) {
	s := settings.Normalize()

	var (
		ch    *Challenge
		entry Entry
		err   error
	)
	switch s.Type {
	case TypeImage:
		ch, entry, err = g.imageChallenge(s)
	default:
		ch, entry, err = g.mathChallenge(s)
	}
	if err != nil {
		return nil, err
	}

	id, err := g.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	ttl := time.Duration(s.ExpirySeconds) * time.Second
	if err := g.store.Put(ctx, id, entry, ttl); err != nil {
		g.log.Error("captcha store put failed", zap.String("type", string(s.Type)), zap.Error(err))
		return nil, err
	}
	ch.ID = id
	return ch, nil
}

type mathProblem struct {
	a, b int
	op   byte
}

// newMathProblem swaps operands of a subtraction so the result is never negative.
func newMathProblem(a, b int, op byte) mathProblem {
	if op == '-' && b > a {
		a, b = b, a
	}
	return mathProblem{a: a, b: b, op: op}
}

func (p mathProblem) question() string {
	return fmt.Sprintf("%d %c %d = ?", p.a, p.op, p.b)
}

func (p mathProblem) answer() int {
	switch p.op {
	case '-':
		return p.a - p.b
	case '*':
		return p.a * p.b
	default:
		return p.a + p.b
	}
}

func (g *Generator) randomMathProblem(d Difficulty) (mathProblem, error) {
	r, ok := mathRanges[d]
	if !ok {
		r = mathRanges[DifficultyEasy]
	}
	a, err := between(g.intn, r.lo, r.hi)
	if err != nil {
		return mathProblem{}, err
	}
	b, err := between(g.intn, r.lo, r.hi)
	if err != nil {
		return mathProblem{}, err
	}
	k, err := g.intn(len(r.ops))
	if err != nil {
		return mathProblem{}, err
	}
	return newMathProblem(a, b, r.ops[k]), nil
}

func (g *Generator) mathChallenge(s Settings) (*Challenge, Entry, error) {
	p, err := g.randomMathProblem(s.Difficulty)
	if err != nil {
		return nil, Entry{}, err
	}
	return &Challenge{Type: TypeMath, Question: p.question()},
		Entry{Answer: fmt.Sprint(p.answer())},
		nil
}

func (g *Generator) imageChallenge(s Settings) (*Challenge, Entry, error) {
	alphabet := g.alphabets.Upper
	if s.CaseSensitive {
		alphabet = g.alphabets.Mixed
	}
	text, err := randomString(g.intn, s.Length, alphabet)
	if err != nil {
		return nil, Entry{}, err
	}
	answer := text
	if !s.CaseSensitive {
		answer = strings.ToUpper(text)
	}
	img, err := g.renderer.Render(answer)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return &Challenge{Type: TypeImage, Question: ImageQuestion, Image: img},
		Entry{Answer: answer, CaseSensitive: s.CaseSensitive},
		nil
}
