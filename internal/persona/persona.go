package persona

import (
	"strings"
	"sync"

	"aicam/internal/domain"
)

// Persona names a prompt profile selecting the commentary style. It is
// orthogonal to provider selection.
type Persona string

const (
	Assistant     Persona = "assistant"
	Photographer  Persona = "photographer"
	Poet          Persona = "poet"
	Translator    Persona = "translator"
	Encyclopedist Persona = "encyclopedist"
	Storyteller   Persona = "storyteller"
	Wellness      Persona = "wellness"
	Menu          Persona = "menu"
)

// Default is the persona active before any selection.
const Default = Assistant

// All returns every known persona in display order.
func All() []Persona {
	return []Persona{
		Assistant, Photographer, Poet, Translator,
		Encyclopedist, Storyteller, Wellness, Menu,
	}
}

// Valid reports whether p names a known persona.
func Valid(p Persona) bool {
	for _, known := range All() {
		if p == known {
			return true
		}
	}
	return false
}

// The focus marker is drawn into the frame before upload; the model is
// told to weight that region without ever revealing the mechanism.
const focusInstruction = " Your reply must read as a natural impression of the whole scene. " +
	"If a small, translucent blue circular marker appears anywhere in the frame, treat its " +
	"surroundings as the focal point of your analysis, but never mention the marker, the focus, " +
	"or anything coordinate-related in your reply. Answer in Markdown."

var defaultPrompts = map[Persona]string{
	Assistant: "Your task: 1. Study the scene in front of you and read its character, mood or " +
		"tension. 2. Pick the single expert voice that suits it best (photographer, poet, linguist, " +
		"naturalist, storyteller, wellness coach...). 3. Answer directly in that voice with your " +
		"reading of the scene." + focusInstruction,
	Photographer: "As a photographer with a poet's eye for light, give the one most useful shooting " +
		"or composition idea for the light, color and framing in front of you." + focusInstruction,
	Poet: "As a poet, distill the character and atmosphere of this scene into a short poem." +
		focusInstruction,
	Translator: "As a linguist, identify any foreign-language text in the frame and translate it, " +
		"or share a piece of background or trivia about that language and script." + focusInstruction,
	Encyclopedist: "As a naturalist, identify what the scene or object is and offer one genuinely " +
		"interesting piece of background or trivia about it." + focusInstruction,
	Storyteller: "As a storyteller, open a tiny story full of suspense or imagination inspired by " +
		"this scene." + focusInstruction,
	Wellness: "As a mindful wellness coach, offer one relevant, actionable piece of healthy-living " +
		"advice drawn from this scene." + focusInstruction,
	Menu: "As a dining guide, read any menu or food in the frame and recommend what to order, with " +
		"a short reason." + focusInstruction,
}

// DefaultImageEditPrompt drives the stylized single-shot edit.
const DefaultImageEditPrompt = "Reimagine this scene as a hand-drawn animation still in the style of a Ghibli film."

// DefaultVideoScriptPrompt asks the VLM for a one-line cinematic logline
// that becomes the video generation prompt.
const DefaultVideoScriptPrompt = "Act as a film director: summarize the core story or emotional " +
	"moment of this picture in a single cinematic logline. It will serve as the script for a short video."

// Library holds the active prompt text per persona plus the generation
// prompts. Overrides layer on top of the defaults; zero value lookups
// fall back to the built-in text.
type Library struct {
	mu          sync.RWMutex
	overrides   map[Persona]string
	imageEdit   string
	videoScript string
}

// NewLibrary returns a library serving the default prompts.
func NewLibrary() *Library {
	return &Library{
		overrides:   make(map[Persona]string),
		imageEdit:   DefaultImageEditPrompt,
		videoScript: DefaultVideoScriptPrompt,
	}
}

// Prompt returns the active prompt for p.
func (l *Library) Prompt(p Persona) (string, error) {
	if !Valid(p) {
		return "", domain.ErrUnknownPersona
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if text, ok := l.overrides[p]; ok {
		return text, nil
	}
	return defaultPrompts[p], nil
}

// SetPrompt overrides the prompt for p; an empty text restores the default.
func (l *Library) SetPrompt(p Persona, text string) error {
	if !Valid(p) {
		return domain.ErrUnknownPersona
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	text = strings.TrimSpace(text)
	if text == "" {
		delete(l.overrides, p)
		return nil
	}
	l.overrides[p] = text
	return nil
}

// ImageEditPrompt returns the prompt used for stylized edits.
func (l *Library) ImageEditPrompt() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.imageEdit
}

// SetImageEditPrompt overrides the edit prompt; empty restores the default.
func (l *Library) SetImageEditPrompt(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if text = strings.TrimSpace(text); text == "" {
		l.imageEdit = DefaultImageEditPrompt
		return
	}
	l.imageEdit = text
}

// VideoScriptPrompt returns the prompt used to draft a video script.
func (l *Library) VideoScriptPrompt() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.videoScript
}

// SetVideoScriptPrompt overrides the script prompt; empty restores the default.
func (l *Library) SetVideoScriptPrompt(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if text = strings.TrimSpace(text); text == "" {
		l.videoScript = DefaultVideoScriptPrompt
		return
	}
	l.videoScript = text
}
