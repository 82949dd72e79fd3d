package pipeline

import (
	"fmt"
	"strings"
	"time"

	"aiwriter/internal/domain"
	"aiwriter/internal/openai"
)

const systemPrompt = "Du bist ein deutscher SEO-Redakteur. Der Artikeltext (HTML) muss klare H2/H3-Struktur enthalten, " +
	"kurze Absätze (≤120 Wörter), Listen wo sinnvoll, keine übertriebene Sprache, keine Inline-CSS oder Skripte. " +
	"Antworte ausschließlich als gültiges JSON-Objekt ohne zusätzliche Erklärungen."

func lengthHint(length domain.LengthTier) string {
	switch length {
	case domain.LengthShort:
		return "3–4 H2-Abschnitte, 600–800 Wörter"
	case domain.LengthLong:
		return "7–8 H2-Abschnitte, 1.400–1.800 Wörter"
	default:
		return "5–6 H2-Abschnitte, 900–1.300 Wörter"
	}
}

func conversation(user string) []openai.Message {
	return []openai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

func outlinePrompt(job *domain.Job) []openai.Message {
	user := fmt.Sprintf(`Sprache: %s
Thema: %s
Länge: %s

Erstelle eine Gliederung für den Artikel. Gib EIN JSON-Objekt mit dieser Struktur zurück:
{
  "title": "string (Artikel-Titel)",
  "sections": [
    {"h2": "string (Abschnittsüberschrift)", "h3s": ["string (Unterpunkt)"]}
  ]
}
Regeln:
- Gib ausschließlich JSON zurück.
- Mindestens eine H2-Überschrift.`, job.Language, job.Topic, lengthHint(job.Length))
	return conversation(user)
}

func sectionPrompt(job *domain.Job, outline domain.Outline, section domain.OutlineSection) []openai.Message {
	subpoints := "keine"
	if len(section.Subpoints) > 0 {
		subpoints = strings.Join(section.Subpoints, "; ")
	}
	user := fmt.Sprintf(`Sprache: %s
Artikel-Titel: %s
Abschnitt: %s
Unterpunkte: %s

Schreibe diesen Abschnitt des Artikels. Gib EIN JSON-Objekt zurück:
{
  "html": "string (HTML des Abschnitts, beginnend mit <h2>%s</h2>, <h3> für Unterpunkte, <p>, <ul>/<ol> wo sinnvoll)"
}
Regeln:
- Gib ausschließlich JSON zurück.
- Kurze Absätze, kein Inline-CSS, keine Skripte.`, job.Language, outline.Title, section.Heading, subpoints, section.Heading)
	return conversation(user)
}

func introConclusionPrompt(job *domain.Job, outline domain.Outline) []openai.Message {
	headings := make([]string, 0, len(outline.Sections))
	for _, s := range outline.Sections {
		headings = append(headings, s.Heading)
	}
	user := fmt.Sprintf(`Sprache: %s
Artikel-Titel: %s
Abschnitte: %s

Schreibe Einleitung und Fazit für den Artikel. Gib EIN JSON-Objekt zurück:
{
  "intro_html": "string (Einleitung als HTML, <p>-Absätze)",
  "conclusion_html": "string (Fazit als HTML, beginnend mit <h2>Fazit</h2>)"
}
Regeln:
- Gib ausschließlich JSON zurück.`, job.Language, outline.Title, strings.Join(headings, "; "))
	return conversation(user)
}

func faqPrompt(job *domain.Job, outline domain.Outline) []openai.Message {
	user := fmt.Sprintf(`Sprache: %s
Artikel-Titel: %s

Erstelle häufige Fragen zum Thema. Gib EIN JSON-Objekt zurück:
{
  "faq": [
    {"q": "string", "a": "string (80–100 Wörter)"}
  ]
}
Regeln:
- Gib ausschließlich JSON zurück.
- 3–5 FAQ-Einträge.`, job.Language, outline.Title)
	return conversation(user)
}

func metaPrompt(job *domain.Job, outline domain.Outline) []openai.Message {
	user := fmt.Sprintf(`Sprache: %s
Artikel-Titel: %s

Erstelle SEO-Metadaten. Gib EIN JSON-Objekt zurück:
{
  "title": "string (≤60 Zeichen)",
  "description": "string (≤155 Zeichen)"
}
Regeln:
- Gib ausschließlich JSON zurück.`, job.Language, outline.Title)
	return conversation(user)
}

func schemaPrompt(job *domain.Job, outline domain.Outline) []openai.Message {
	user := fmt.Sprintf(`Sprache: %s
Artikel-Titel: %s

Erstelle JSON-LD Schema-Markup für den Artikel. Gib EIN JSON-Objekt zurück:
{
  "@context": "https://schema.org",
  "@type": "Article",
  "headline": "string",
  "datePublished": "%s",
  "inLanguage": "%s"
}
Regeln:
- Gib ausschließlich JSON zurück.`, job.Language, outline.Title, time.Now().UTC().Format(time.RFC3339), job.Language)
	return conversation(user)
}

func imageKeywordPrompt(topic string) []openai.Message {
	return []openai.Message{
		{Role: "system", Content: "You are a content assistant. Given an article topic, respond with a short, " +
			"descriptive phrase that best represents a good illustration for this topic. Respond with only the phrase."},
		{Role: "user", Content: topic},
	}
}

func imagePrompt(keyword string) string {
	return fmt.Sprintf("Sachliche, moderne Titelillustration zum Thema „%s“, flache Illustration, kein Text, neutraler Hintergrund.", keyword)
}
