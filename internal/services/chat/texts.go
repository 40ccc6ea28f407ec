package chat

import (
	"fmt"
	"strings"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/services/workflow"
)

const rulesText = `📋 Reglas del grupo:
1. Prohibida la compra-venta de productos o servicios.
2. Prohibido el contenido inapropiado en imágenes.
3. Tres strikes implican la expulsión del grupo.
Consultá tus strikes enviando *strikes*. Apelá un strike con */apelar*.`

const userMenuText = `Comandos disponibles:
• *strikes* — ver tus strikes
• *reglas* — ver las reglas del grupo
• */apelar* — apelar tu último strike`

const moderatorMenuText = `Comandos de moderador:
• *estoy* — tomar el próximo caso de la cola
• *1* / *2* / *3* — resolver el caso que tenés en revisión
• *advertir* — advertir sin strike
• *strikes*, *reglas* — comandos generales`

const adminMenuText = `Comandos de administrador:
• *agregar mod <teléfono>* — alta de moderador
• *quitar mod <teléfono>* — baja de moderador
` + moderatorMenuText

const noHeldCaseText = "No tenés ningún caso en revisión. Enviá *estoy* para tomar el próximo."

const emptyQueueText = "🎉 No hay casos pendientes en la cola."

const appealPromptText = "📝 Apelación abierta. Respondé con el motivo de tu apelación en los próximos 5 minutos."

const appealReceivedText = "Recibimos tu apelación. Un moderador la va a revisar a la brevedad."

func strikesText(u model.User) string {
	status := map[enums.UserStatus]string{
		enums.UserStatusActive: "activo",
		enums.UserStatusWarned: "advertido",
		enums.UserStatusBanned: "expulsado",
	}[u.Status]
	return fmt.Sprintf("Tenés %d strikes. Estado: %s.", u.Strikes, status)
}

func historyLines(actions []model.UserAction) string {
	if len(actions) == 0 {
		return ""
	}
	kinds := map[enums.ActionKind]string{
		enums.ActionWarn:   "advertencia",
		enums.ActionStrike: "strike",
		enums.ActionBan:    "expulsión",
	}
	var b strings.Builder
	b.WriteString("\nTu historial reciente:")
	for _, a := range actions {
		fmt.Fprintf(&b, "\n• %s — %s", a.CreatedAt.Format("02/01/2006"), kinds[a.Kind])
	}
	return b.String()
}

func caseViewText(view workflow.CaseView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Caso #%d (%s)\n", view.Case.ID, caseTypeLabel(view.Case.Type))
	fmt.Fprintf(&b, "Usuario: %s (%s) — %d strikes\n", view.User.Name, view.User.Phone, view.User.Strikes)

	switch {
	case view.Case.Type == enums.CaseTypeAppeal && view.Case.Note != nil:
		fmt.Fprintf(&b, "Apelación: %q\n", *view.Case.Note)
	case view.Message.Type == enums.MessageTypeImage:
		fmt.Fprintf(&b, "Imagen: %s\n", view.MediaURL)
	default:
		fmt.Fprintf(&b, "Mensaje: %q\n", view.Message.Content)
	}

	if view.Case.Type == enums.CaseTypeAppeal {
		b.WriteString("Respondé: *1* Aceptar · *2* Rechazar")
	} else {
		b.WriteString("Respondé: *1* Ignorar · *2* Eliminar y strike · *3* Expulsar · *advertir*")
	}
	fmt.Fprintf(&b, "\nCasos en cola: %d", view.QueueSize)
	return b.String()
}

func caseTypeLabel(t enums.CaseType) string {
	switch t {
	case enums.CaseTypeInfringement:
		return "infracción"
	case enums.CaseTypeImageReview:
		return "revisión de imagen"
	case enums.CaseTypeAppeal:
		return "apelación"
	}
	return string(t)
}
