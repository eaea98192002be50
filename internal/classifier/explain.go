package classifier

import (
	"fmt"

	"github.com/rajasatyajit/ProtectLife/internal/models"
)

var reasoningTemplates = map[models.DangerType]string{
	models.DangerTrafficAccident:     "Signalement identifié comme accident de circulation basé sur les mots-clés détectés. Gravité %s selon les termes utilisés.",
	models.DangerFire:                "Situation d'incendie détectée dans la description. Niveau %s en raison du contexte urbain d'Abidjan.",
	models.DangerCrime:               "Incident de sécurité identifié. Gravité %s typique pour ce type de signalement à Abidjan.",
	models.DangerMedicalEmergency:    "Urgence médicale détectée. Niveau %s nécessitant une intervention rapide.",
	models.DangerNaturalDisaster:     "Catastrophe naturelle identifiée, probablement liée aux conditions météorologiques à Abidjan. Gravité %s.",
	models.DangerInfrastructureIssue: "Problème d'infrastructure urbaine détecté, fréquent dans certains quartiers d'Abidjan. Gravité %s.",
	models.DangerEnvironmentalHazard: "Danger environnemental signalé, nécessitant une attention particulière. Gravité %s.",
	models.DangerOther:               "Signalement analysé selon les informations disponibles. Classification générale appliquée, gravité %s.",
}

var actionsByType = map[models.DangerType][]string{
	models.DangerTrafficAccident: {
		"Éviter la zone si possible",
		"Appeler la police (110)",
		"Chercher un itinéraire alternatif",
	},
	models.DangerFire: {
		"Évacuer immédiatement la zone",
		"Appeler les pompiers (180)",
		"Ne pas inhaler la fumée",
	},
	models.DangerCrime: {
		"Rester vigilant dans le secteur",
		"Signaler à la police (110)",
		"Éviter de se déplacer seul",
	},
	models.DangerMedicalEmergency: {
		"Appeler le SAMU (185)",
		"Ne pas déplacer la victime",
		"Sécuriser les lieux",
	},
	models.DangerNaturalDisaster: {
		"Éviter les zones inondées",
		"Suivre les consignes officielles",
		"Chercher un abri sécurisé",
	},
	models.DangerInfrastructureIssue: {
		"Signaler aux autorités compétentes",
		"Conduire prudemment",
		"Éviter la zone si dangereuse",
	},
	models.DangerEnvironmentalHazard: {
		"Éviter tout contact",
		"Signaler aux autorités",
		"Aérer si en intérieur",
	},
	models.DangerOther: {
		"Évaluer la situation",
		"Contacter les services appropriés",
		"Rester prudent",
	},
}

// Explain returns the justification and recommended actions for a
// classification. Unknown danger types get the generic entry. The returned
// slice is a copy and may be modified by the caller.
func Explain(dangerType models.DangerType, severity models.Severity) (string, []string) {
	template, ok := reasoningTemplates[dangerType]
	if !ok {
		template = reasoningTemplates[models.DangerOther]
	}
	actions, ok := actionsByType[dangerType]
	if !ok {
		actions = actionsByType[models.DangerOther]
	}

	return fmt.Sprintf(template, severity), append([]string(nil), actions...)
}
