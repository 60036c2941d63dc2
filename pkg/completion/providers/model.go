package providers

// ModelProvider handles completions of model names inside ref(...)
type ModelProvider struct{}

// NewModelProvider creates a new model completion provider
func NewModelProvider() *ModelProvider {
	return &ModelProvider{}
}

// GetCompletions returns one item per model. With quote set the inserted
// text is a string literal, otherwise the cursor is already inside one.
func (p *ModelProvider) GetCompletions(models []string, quote bool) []CompletionItem {
	completions := make([]CompletionItem, 0, len(models))
	for _, name := range models {
		text := name
		if quote {
			text = "'" + name + "'"
		}
		completions = append(completions, CompletionItem{
			Label:   name,
			Kind:    KindModel,
			Detail:  "model",
			NewText: text,
		})
	}
	return completions
}
