package gateway

import "fmt"

const analysisPrompt = `Tu es un expert en sécurité publique pour Abidjan, Côte d'Ivoire. Analyse ce signalement et détermine :

SIGNALEMENT :
Titre: %s
Description: %s
Localisation: %s

TYPES DE DANGERS POSSIBLES :
- traffic_accident (accidents de circulation)
- fire (incendies)
- medical_emergency (urgences médicales)
- crime (crimes/vols)
- natural_disaster (catastrophes naturelles)
- infrastructure_issue (problèmes d'infrastructure)
- environmental_hazard (dangers environnementaux)
- other (autres)

NIVEAUX DE GRAVITÉ :
- low (faible - danger mineur)
- medium (moyen - attention recommandée)
- high (élevé - éviter la zone)
- critical (critique - danger immédiat)

CONTEXTE CÔTE D'IVOIRE :
- Saison des pluies = inondations fréquentes
- Marchés = risques d'incendie
- Routes = infrastructure parfois dégradée
- Sécurité urbaine = vols à l'arrachée possibles

Réponds UNIQUEMENT en JSON avec ce format exact :
{"dangerType": "type_identifié", "severity": "niveau_gravité", "confidence": nombre_entre_0_et_100, "reasoning": "explication_courte", "suggestedActions": ["action1", "action2", "action3"]}`

const enhancePrompt = `Tu es un expert en rédaction de signalements d'urgence pour Abidjan, Côte d'Ivoire.

SIGNALEMENT ACTUEL :
Titre: %s
Description: %s

AMÉLIORE cette description pour la rendre plus claire, plus utile pour les premiers secours et adaptée au contexte ivoirien, en 200 caractères maximum.
Garde le même sens mais améliore la formulation.
Réponds UNIQUEMENT avec la description améliorée, sans guillemets ni formatage.`

const advicePrompt = `Tu es un assistant de sécurité expert pour Abidjan, Côte d'Ivoire. Tu aides les citoyens avec des conseils de sécurité pratiques et localisés.

CONTEXTE ABIDJAN :
- Saison des pluies (mai-octobre) = risques d'inondations
- Circulation dense, motos nombreuses
- Marchés animés (Adjamé, Cocody, Plateau)
- Lagune Ébrié présente des risques
- Infrastructures parfois dégradées

QUESTION DE L'UTILISATEUR :
%s

LOCALISATION :
%s

Donne des conseils pratiques et spécifiques à Abidjan, en 200 mots maximum, adaptés au quartier mentionné.

NUMÉROS D'URGENCE CÔTE D'IVOIRE :
- Police : 110 ou 111
- Pompiers : 180
- SAMU : 185
- Police Secours : 170

Réponds en français simple et accessible.`

const improvePrompt = `Tu es un expert en amélioration de transcriptions vocales pour des signalements d'urgence à Abidjan, Côte d'Ivoire.

TRANSCRIPTION ORIGINALE :
%s

Corrige les erreurs de transcription évidentes, notamment les noms de lieux d'Abidjan (Cocody, Plateau, Adjamé, Marcory, Koumassi, Treichville), améliore la clarté en préservant le sens original, garde un style direct et informatif, 200 mots maximum.

Réponds UNIQUEMENT avec le texte amélioré, sans guillemets ni formatage.`

// whisperHint biases recognition towards local place names
const whisperHint = "Signalement d'urgence à Abidjan, Côte d'Ivoire. Quartiers: Cocody, Plateau, Adjamé, Marcory, Koumassi, Treichville."

const unspecifiedLocation = "Non spécifiée"

func buildAnalysisPrompt(title, description, location string) string {
	if location == "" {
		location = unspecifiedLocation
	}
	return fmt.Sprintf(analysisPrompt, title, description, location)
}

func buildEnhancePrompt(title, description string) string {
	return fmt.Sprintf(enhancePrompt, title, description)
}

func buildAdvicePrompt(question, location string) string {
	return fmt.Sprintf(advicePrompt, question, location)
}

func buildImprovePrompt(text string) string {
	return fmt.Sprintf(improvePrompt, text)
}
