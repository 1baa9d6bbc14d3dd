package structure

import (
	"strings"

	"github.com/caseward/manualforge/internal/classify"
)

// builderState is the explicit fold state of the builder. The original
// scripts kept a global current-section/current-policy cursor; carrying the
// cursor in the builder keeps concurrent imports independent.
type builderState int

const (
	stateNoSection builderState = iota
	stateInSection
	stateInPolicy
)

// Builder consumes classified lines one at a time and assembles a
// Structure. It is single-use: Feed lines, then Finish.
type Builder struct {
	classifier *classify.Classifier
	state      builderState

	sections []*Section
	section  *Section
	policy   *Policy

	// pending buffers content lines until a policy exists to own them.
	// Content preceding any header becomes the eventual first policy's
	// opening content.
	pending []string
}

// NewBuilder returns a builder classifying lines with c. A nil classifier
// selects the default pattern set.
func NewBuilder(c *classify.Classifier) *Builder {
	if c == nil {
		c = classify.New(nil)
	}
	return &Builder{classifier: c}
}

// Build runs the full pipeline over text: split into lines, classify each,
// fold into a Structure. It never fails; unrecognizable input degrades to a
// single default section and policy.
func Build(c *classify.Classifier, text string) *Structure {
	b := NewBuilder(c)
	for _, line := range strings.Split(text, "\n") {
		b.Feed(line)
	}
	return b.Finish()
}

// Feed advances the state machine by one raw line.
func (b *Builder) Feed(line string) {
	res := b.classifier.Classify(line, b.state != stateNoSection)

	switch res.Kind {
	case classify.SectionHeader:
		b.closeSection()
		b.section = &Section{Title: res.Title}
		b.state = stateInSection

	case classify.PolicyHeader:
		if b.state == stateNoSection {
			// Implicit section so the policy has a home.
			b.section = &Section{Title: DefaultSectionTitle}
			b.state = stateInSection
		}
		b.closePolicy()
		b.policy = &Policy{Title: res.Title, Raw: b.takePending()}
		b.state = stateInPolicy

	default:
		b.pending = append(b.pending, line)
	}
}

// Finish flushes remaining state and returns the assembled Structure. An
// input with no recognizable headers yields one default section holding one
// default policy wrapping the entire text, so preview output is never
// empty.
func (b *Builder) Finish() *Structure {
	b.closeSection()

	if len(b.sections) == 0 {
		b.sections = []*Section{{
			Title: DefaultSectionTitle,
			Policies: []*Policy{{
				Title: DefaultPolicyTitle,
				Raw:   b.takePending(),
			}},
		}}
	}

	return &Structure{Sections: b.sections}
}

// closePolicy flushes pending content into the open policy and pushes it
// onto the current section. With no open policy the pending buffer is left
// intact so it can seed the next one.
func (b *Builder) closePolicy() {
	if b.policy == nil {
		return
	}
	b.policy.Raw = append(b.policy.Raw, b.takePending()...)
	b.section.Policies = append(b.section.Policies, b.policy)
	b.policy = nil
}

// closeSection finalizes the open section. Content buffered inside a
// section that never opened a policy is wrapped in an implicit overview
// policy rather than dropped; content buffered before any section at all
// keeps carrying forward.
func (b *Builder) closeSection() {
	if b.policy != nil {
		b.closePolicy()
	}
	if b.section == nil {
		return
	}
	if pending := b.takePending(); hasContent(pending) {
		b.section.Policies = append(b.section.Policies, &Policy{
			Title: OverviewPolicyTitle,
			Raw:   pending,
		})
	}
	b.sections = append(b.sections, b.section)
	b.section = nil
	b.state = stateNoSection
}

func (b *Builder) takePending() []string {
	p := b.pending
	b.pending = nil
	return p
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
