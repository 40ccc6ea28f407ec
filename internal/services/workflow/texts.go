package workflow

import (
	"fmt"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
)

// User-facing texts are Spanish; the moderated community is Spanish-speaking.

func warnText() string {
	return "⚠️ Advertencia: tu mensaje infringe las reglas del grupo. Una próxima infracción suma un strike."
}

func strikeText(count, threshold int) string {
	return fmt.Sprintf("🚫 Tu mensaje fue eliminado por infringir las reglas. Tenés %d/%d strikes. Podés apelar con /apelar.", count, threshold)
}

func bannedText(count int) string {
	return fmt.Sprintf("⛔ Alcanzaste %d strikes y fuiste expulsado del grupo. Podés apelar con /apelar.", count)
}

func expelBroadcastText(name, phone string) string {
	who := name
	if who == "" {
		who = phone
	}
	return fmt.Sprintf("👮 %s fue expulsado del grupo por infracciones reiteradas.", who)
}

func appealAcceptedText(count int) string {
	return fmt.Sprintf("✅ Tu apelación fue aceptada. Ahora tenés %d strikes.", count)
}

func appealRejectedText() string {
	return "❌ Tu apelación fue rechazada. El strike se mantiene."
}

func moderatorConfirmText(caseID int64, decision enums.Decision) string {
	return fmt.Sprintf("Caso #%d resuelto: %s.", caseID, decision)
}
