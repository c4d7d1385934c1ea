package evolution

import (
	"context"
	"math/rand"
	"testing"

	"github.com/corewars/drq/llm"
	"github.com/corewars/drq/redcode"

	. "github.com/smartystreets/goconvey/convey"
)

// failingProvider always returns a TransportError, to exercise the
// retry-once-then-fallback path.
type failingProvider struct{ calls int }

func (p *failingProvider) Name() string { return "failing" }
func (p *failingProvider) Generate(context.Context, llm.Request) (llm.Response, error) {
	p.calls++
	return llm.Response{}, &llm.TransportError{Provider: "failing", Op: "generate", Err: context.DeadlineExceeded}
}

// gibberishProvider returns text that never parses as Redcode.
type gibberishProvider struct{}

func (gibberishProvider) Name() string { return "gibberish" }
func (gibberishProvider) Generate(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{Text: "I cannot help with that request."}, nil
}

func TestExtractCode(t *testing.T) {
	Convey("Given LLM responses in various shapes", t, func() {
		Convey("A fenced code block is extracted and trimmed", func() {
			resp := "Here you go:\n```redcode\nMOV.I 0, 1\n```\nEnjoy!"
			So(extractCode(resp), ShouldEqual, "MOV.I 0, 1")
		})

		Convey("Bare opcode lines are extracted without a fence", func() {
			resp := "Sure, try this:\nMOV.I 0, 1\nDAT #0, #0\nHope that helps."
			So(extractCode(resp), ShouldEqual, "MOV.I 0, 1\nDAT #0, #0")
		})

		Convey("Unrecognizable text is returned verbatim", func() {
			resp := "I cannot help with that."
			So(extractCode(resp), ShouldEqual, resp)
		})
	})
}

func TestVariationOperatorFallback(t *testing.T) {
	Convey("Given a variation operator whose provider never yields parseable Redcode", t, func() {
		rng := rand.New(rand.NewSource(7))
		op := NewVariationOperator(gibberishProvider{}, llm.DefaultGenerationConfig(), rng, nil)

		Convey("GenerateRandom falls back to a retitled classic", func() {
			w := op.GenerateRandom(context.Background())
			So(w.Len(), ShouldBeGreaterThan, 0)
			So(op.Stats.ParseFailures, ShouldEqual, 1)
			So(op.Stats.Generations, ShouldEqual, 1)
		})

		Convey("Mutate falls back to a single-field nudge on the original", func() {
			imp := redcode.Imp()
			mutated := op.Mutate(context.Background(), imp)
			So(mutated.Len(), ShouldEqual, imp.Len())
			So(mutated.Name, ShouldEqual, imp.Name+"_mut")
			So(op.Stats.ParseFailures, ShouldEqual, 1)
		})

		Convey("Crossover falls back to a split-and-splice of both parents", func() {
			offspring := op.Crossover(context.Background(), redcode.Imp(), redcode.Dwarf())
			So(offspring.Len(), ShouldBeGreaterThan, 0)
			So(offspring.Author, ShouldEqual, "Crossover")
		})
	})

	Convey("Given a variation operator whose provider always transport-fails", t, func() {
		rng := rand.New(rand.NewSource(11))
		provider := &failingProvider{}
		op := NewVariationOperator(provider, llm.DefaultGenerationConfig(), rng, nil)

		Convey("GenerateRandom retries exactly once before falling back", func() {
			w := op.GenerateRandom(context.Background())
			So(w.Len(), ShouldBeGreaterThan, 0)
			So(provider.calls, ShouldEqual, 2)
		})
	})
}

func TestSuccessRate(t *testing.T) {
	Convey("Given generation stats", t, func() {
		Convey("Zero attempts reports zero rather than dividing by zero", func() {
			So(Stats{}.SuccessRate(), ShouldEqual, 0)
		})

		Convey("Success rate reflects the share without parse failures", func() {
			s := Stats{Generations: 4, Mutations: 6, ParseFailures: 2}
			So(s.SuccessRate(), ShouldEqual, float64(10-2)/float64(10))
		})
	})
}
