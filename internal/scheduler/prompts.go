package scheduler

import (
	"fmt"

	"aiwriter/internal/openai"
)

const planSystemPrompt = "Du bist ein erfahrener Content-Strategist und SEO-Experte. " +
	"Du erstellst professionelle, ansprechende Artikel-Titel für deutsche Websites. " +
	"Antworte ausschließlich als gültiges JSON-Objekt ohne zusätzliche Erklärungen."

func planPrompt(siteContext, goal string, count int) []openai.Message {
	goalText := ""
	if goal != "" {
		goalText = "\nZiel: " + goal
	}
	user := fmt.Sprintf(`Du bist ein Content-Strategist für eine Website. Basierend auf dem folgenden Kontext erstelle %d Artikel-Titel für ein regelmäßiges Blog-Publishing-Programm.

Website-Kontext:
%s%s

Erstelle %d SEO-optimierte, ansprechende Artikel-Titel in deutscher Sprache. Jeder Titel sollte:
- 50-60 Zeichen lang sein
- Klar und präzise sein
- Neugier wecken
- Zum Klicken einladen
- Zum Website-Kontext passen

Gib für jeden Titel auch eine kurze Beschreibung (1-2 Sätze) und 3-5 relevante Keywords an.

Antworte im folgenden JSON-Format:
{
  "titles": [
    {
      "title": "Artikel-Titel",
      "description": "Kurze Beschreibung des Artikels",
      "keywords": ["keyword1", "keyword2", "keyword3"]
    }
  ]
}`, count, siteContext, goalText, count)

	return []openai.Message{
		{Role: "system", Content: planSystemPrompt},
		{Role: "user", Content: user},
	}
}
