package prompts

// Template keys used by the chat pipeline.
const (
	KeyRAGTemplate       = "rag_template"
	KeyChatSummarySystem = "chat_summary.system"
	KeyChatSummaryUser   = "chat_summary.user"
	KeySynthesisSystem   = "synthesis.system"
	KeySynthesisSummary  = "synthesis.summary"
	KeySynthesisCompare  = "synthesis.compare"
	KeySynthesisNarrate  = "synthesis.narrative"
)

// defaultTemplates returns a fresh copy of the built-in templates. Callers
// may overwrite entries with file-loaded overrides.
func defaultTemplates() map[string]string {
	return map[string]string{
		KeyRAGTemplate: `{system_prompt}

Use the following excerpts from the user's canvas to answer. When you rely on an excerpt, cite it by its bracketed number, e.g. [1] or [2].

Context:
{context_text}`,

		KeyChatSummarySystem: `You summarize conversations between a user and an AI assistant. Write a short, neutral summary of what was discussed and what was concluded. Do not add information that is not in the conversation.`,

		KeyChatSummaryUser: `Summarize the following conversation in a few sentences:

{conversation_text}`,

		KeySynthesisSystem: `You combine excerpts and notes from a user's research canvas into a single coherent text. Stay faithful to the source material and do not invent facts.`,

		KeySynthesisSummary: `Write a concise summary of the key points across these excerpts:

{content}`,

		KeySynthesisCompare: `Compare and contrast these excerpts. Point out where they agree, where they differ, and what each contributes:

{content}`,

		KeySynthesisNarrate: `Weave these excerpts into a single coherent narrative:

{content}`,
	}
}
