package evolution

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/corewars/drq/llm"
	"github.com/corewars/drq/redcode"
)

// redcodeSpec is embedded in every generation/mutation/crossover system
// prompt so the model has the opcode table, modifiers, addressing modes
// and a couple of worked examples in context.
const redcodeSpec = `# Redcode-94 reference

## Opcodes
DAT MOV ADD SUB MUL DIV MOD JMP JMZ JMN DJN SPL CMP SEQ SNE SLT NOP

## Modifiers
.A .B .AB .BA .F .X .I

## Addressing modes
# immediate, $ direct, * A-indirect, @ B-indirect,
{ A-predecrement, < B-predecrement, } A-postincrement, > B-postincrement

## Examples

Imp (copies itself forward one cell per step):
MOV.I 0, 1

Replicator (splits, then copies itself back one cell):
SPL 0, 0
MOV.I -1, 1
`

var knownOpcodes = []string{
	"DAT", "MOV", "ADD", "SUB", "MUL", "DIV", "MOD",
	"JMP", "JMZ", "JMN", "DJN", "SPL", "CMP", "SEQ", "SNE", "SLT", "NOP",
}

var strategyHints = []string{
	"a bomber that writes DAT instructions at various memory locations",
	"a replicator that copies itself to spread across memory",
	"a scanner that searches for enemy code and attacks it",
	"a paper warrior that uses SPL to create many threads",
	"a quick-scanning attacker that finds and destroys enemies fast",
	"a hybrid bomber-replicator for robustness",
	"a stealthy warrior that hides and attacks unexpectedly",
	"a multi-threaded bomber that attacks from multiple locations",
}

var mutationHints = []string{
	"Improve the bombing pattern to cover more memory",
	"Add more threading with SPL instructions",
	"Make it more defensive by adding self-checks",
	"Increase attack speed",
	"Add a secondary attack strategy",
	"Optimize instruction count",
	"Add decoy code to confuse scanners",
	"Improve replication efficiency",
	"Change addressing modes for better performance",
	"Add a scanning component to find enemies",
}

// Stats mirrors the variation operator's running counters.
type Stats struct {
	Generations   int
	Mutations     int
	ParseFailures int
}

// SuccessRate is one minus ParseFailures over the number of
// generate+mutate calls. Crossover fallbacks also add to ParseFailures,
// so they lower the rate as well.
func (s Stats) SuccessRate() float64 {
	attempts := s.Generations + s.Mutations
	if attempts == 0 {
		return 0
	}
	return float64(attempts-s.ParseFailures) / float64(attempts)
}

var codeFence = regexp.MustCompile("(?is)```(?:redcode|asm|assembly)?\\s*\\n?(.*?)```")

// extractCode pulls Redcode out of a free-form LLM response: first a
// fenced code block, falling back to lines that look like instructions
// or comments, falling back to the response verbatim.
func extractCode(response string) string {
	if m := codeFence.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}

	var lines []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		isOpcode := false
		for _, op := range knownOpcodes {
			if strings.HasPrefix(upper, op) {
				isOpcode = true
				break
			}
		}
		if isOpcode || strings.HasPrefix(line, ";") {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return response
}

// VariationOperator generates, mutates and recombines warriors via an
// LLM provider, falling back to deterministic local transforms whenever
// the provider's output doesn't parse as a warrior with at least one
// instruction.
type VariationOperator struct {
	Provider llm.Provider
	Config   llm.GenerationConfig
	rng      *rand.Rand

	Stats    Stats
	classics []*redcode.Warrior
}

// NewVariationOperator builds an operator over provider, using rng for
// strategy/mutation-hint selection and fallback construction. classics
// seeds the generate-fallback template pool; if empty, the bundled
// classic warriors are used. A nil provider is a configuration error and
// panics here, before any evolution begins.
func NewVariationOperator(provider llm.Provider, cfg llm.GenerationConfig, rng *rand.Rand, classics []*redcode.Warrior) *VariationOperator {
	if provider == nil {
		panic("evolution: nil llm.Provider")
	}
	if len(classics) == 0 {
		for _, w := range redcode.Classics() {
			classics = append(classics, w)
		}
	}
	return &VariationOperator{Provider: provider, Config: cfg, rng: rng, classics: classics}
}

// GenerateRandom asks the provider for a fresh warrior built around a
// randomly (or configured) chosen strategy. On any transport failure or
// unparseable/empty response, it falls back to a retitled classic.
func (v *VariationOperator) GenerateRandom(ctx context.Context) *redcode.Warrior {
	v.Stats.Generations++

	strategy := v.Config.StrategyHint
	if strategy == "" {
		strategy = strategyHints[v.rng.Intn(len(strategyHints))]
	}

	prompt := fmt.Sprintf(`Generate a Core War warrior in Redcode.

Strategy: Create %s

Requirements:
- Maximum %d instructions
- Use valid Redcode-94 syntax
- Include comments explaining the strategy
- Give the warrior a creative name

Return ONLY the Redcode, starting with ;name and ;author comments.
`, strategy, v.maxLines())

	system := "You are an expert Core War programmer. Generate valid Redcode-94 warriors.\n\n" + redcodeSpec

	warrior, err := v.callAndParse(ctx, prompt, system)
	if err != nil {
		v.Stats.ParseFailures++
		return v.generateFallback()
	}
	return warrior
}

// Mutate asks the provider to improve warrior toward a randomly chosen
// goal, falling back to a single-field nudge on failure.
func (v *VariationOperator) Mutate(ctx context.Context, warrior *redcode.Warrior) *redcode.Warrior {
	v.Stats.Mutations++

	goal := mutationHints[v.rng.Intn(len(mutationHints))]
	source := warrior.String()

	prompt := fmt.Sprintf("Mutate this Core War warrior to improve it.\n\nCurrent warrior:\n```\n%s\n```\n\nMutation goal: %s\n\nRequirements:\n- Keep the core strategy but improve it\n- Maximum %d instructions\n- Maintain valid Redcode-94 syntax\n- Make meaningful changes, not just cosmetic\n\nReturn ONLY the improved Redcode.\n", source, goal, v.maxLines())

	system := "You are an expert Core War programmer. Improve warriors while maintaining valid Redcode-94 syntax.\n\n" + redcodeSpec + "\nFocus on making warriors stronger against diverse opponents."

	mutated, err := v.callAndParse(ctx, prompt, system)
	if err != nil {
		v.Stats.ParseFailures++
		return v.mutateFallback(warrior)
	}
	return mutated
}

// Crossover asks the provider to combine two warriors into a hybrid,
// falling back to a split-and-splice recombination on failure.
func (v *VariationOperator) Crossover(ctx context.Context, parent1, parent2 *redcode.Warrior) *redcode.Warrior {
	prompt := fmt.Sprintf("Combine these two Core War warriors into a new hybrid warrior.\n\nParent 1:\n```\n%s\n```\n\nParent 2:\n```\n%s\n```\n\nRequirements:\n- Combine the best strategies from both parents\n- Maximum %d instructions\n- Create something new, not just concatenation\n- Maintain valid Redcode-94 syntax\n\nReturn ONLY the new hybrid Redcode.\n", parent1.String(), parent2.String(), v.maxLines())

	system := "You are an expert Core War programmer. Create hybrid warriors by intelligently combining strategies.\n\n" + redcodeSpec

	offspring, err := v.callAndParse(ctx, prompt, system)
	if err != nil {
		v.Stats.ParseFailures++
		return v.crossoverFallback(parent1, parent2)
	}
	return offspring
}

func (v *VariationOperator) maxLines() int {
	if v.Config.MaxWarriorLines > 0 {
		return v.Config.MaxWarriorLines
	}
	return 50
}

// callAndParse issues one provider call, retries once on a
// TransportError, then extracts and parses the response. A parse
// success with zero instructions is treated as a failure, matching the
// reference generator's "empty warrior" rejection.
func (v *VariationOperator) callAndParse(ctx context.Context, prompt, system string) (*redcode.Warrior, error) {
	req := llm.Request{
		Prompt:       prompt,
		SystemPrompt: system,
		Temperature:  v.Config.Temperature,
		MaxTokens:    v.Config.MaxTokens,
	}

	resp, err := v.Provider.Generate(ctx, req)
	if _, isTransport := err.(*llm.TransportError); isTransport {
		resp, err = v.Provider.Generate(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	code := extractCode(resp.Text)
	warrior, err := redcode.Parse(code)
	if err != nil {
		return nil, err
	}
	if warrior.Len() == 0 {
		return nil, fmt.Errorf("evolution: empty warrior")
	}
	return warrior, nil
}

func (v *VariationOperator) generateFallback() *redcode.Warrior {
	template := v.classics[v.rng.Intn(len(v.classics))]
	w := template.Clone()
	w.Name = fmt.Sprintf("Fallback_%d", v.Stats.Generations)
	return w
}

func (v *VariationOperator) mutateFallback(warrior *redcode.Warrior) *redcode.Warrior {
	mutated := warrior.Clone()
	mutated.Name = warrior.Name + "_mut"
	if mutated.Len() == 0 {
		return mutated
	}
	idx := v.rng.Intn(mutated.Len())
	delta := v.rng.Intn(11) - 5
	instr := &mutated.Instructions[idx]
	if v.rng.Float64() < 0.5 {
		instr.A.Value = normalizeMutation(instr.A.Value+delta, 8000)
	} else {
		instr.B.Value = normalizeMutation(instr.B.Value+delta, 8000)
	}
	return mutated
}

func normalizeMutation(v, m int) int {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}

func (v *VariationOperator) crossoverFallback(parent1, parent2 *redcode.Warrior) *redcode.Warrior {
	mid1 := parent1.Len() / 2
	mid2 := parent2.Len() / 2

	instructions := make([]redcode.Instruction, 0, mid1+(parent2.Len()-mid2))
	instructions = append(instructions, parent1.Instructions[:mid1]...)
	instructions = append(instructions, parent2.Instructions[mid2:]...)

	maxLen := v.maxLines()
	if len(instructions) > maxLen {
		instructions = instructions[:maxLen]
	}

	return &redcode.Warrior{
		Name:         parent1.Name + "x" + parent2.Name,
		Author:       "Crossover",
		Instructions: instructions,
	}
}
