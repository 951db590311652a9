package deepdive

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

// Delimiter separates per-candidate analyses in the model response.
const Delimiter = "|||"

// DefaultSystemInstruction keeps the model in the role of an Italian-speaking literary critic.
const DefaultSystemInstruction = "Sei un critico letterario esperto. Rispondi sempre e solo in italiano."

// BuildPrompt lays out the reference book and candidates and asks for one analysis
// per candidate, in candidate order, separated by Delimiter.
func BuildPrompt(title, synopsis string, cands []book.Candidate) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Libro di riferimento: '%s'\n", title)
	fmt.Fprintf(&sb, "Sinossi di riferimento: %s\n\n", synopsis)
	sb.WriteString("Libri consigliati:\n")
	for _, c := range cands {
		fmt.Fprintf(&sb, " - Titolo: %s, Sinossi: %s\n", c.Title, c.Synopsis)
	}
	sb.WriteString("\nAnalizza la somiglianza di ciascun libro consigliato con il libro di riferimento, ")
	sb.WriteString("considerando stile, genere, trama, ambientazione e tono.\n")
	fmt.Fprintf(&sb, "IMPORTANTE: Fornisci solo le analisi, nello stesso ordine dei libri consigliati, "+
		"separate dal delimitatore '%s'. Non includere i titoli dei libri nella risposta.\n", Delimiter)

	return sb.String()
}
