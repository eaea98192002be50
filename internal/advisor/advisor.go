package advisor

import (
	"strings"

	"github.com/rajasatyajit/ProtectLife/pkg/utils"
)

// Topic identifies which advisory template answered a question
type Topic string

const (
	TopicFlood     Topic = "flood"
	TopicTransport Topic = "transport"
	TopicCrime     Topic = "crime"
	TopicGeneral   Topic = "general"
)

type route struct {
	topic    Topic
	keywords []string
}

// routes is checked in priority order
var routes = []route{
	{TopicFlood, []string{"inondation", "inondé"}},
	{TopicTransport, []string{"transport", "moto", "voiture"}},
	{TopicCrime, []string{"vol", "sécurité"}},
}

var templates = map[Topic]string{
	TopicFlood: `Pour éviter les inondations à Abidjan :
• Surveillez les prévisions météo pendant la saison des pluies (mai-octobre)
• Évitez les zones basses comme certaines parties de Koumassi et Marcory
• En cas d'inondation, appelez les pompiers (180)
• Préférez les axes surélevés lors de fortes pluies
• Stockez de l'eau potable en prévention`,

	TopicTransport: `Conseils de transport sécurisé à Abidjan :
• Respectez le code de la route, surtout aux carrefours
• Portez un casque en moto-taxi
• Évitez les heures de pointe (7h-9h, 17h-19h)
• Méfiez-vous des nids de poule sur certaines routes
• En cas d'accident, appelez la police (110)`,

	TopicCrime: `Conseils de sécurité personnelle à Abidjan :
• Évitez d'exposer objets de valeur en public
• Restez vigilant dans les transports et marchés
• Préférez les déplacements en groupe la nuit
• Signaler tout incident suspect à la police (110)
• Gardez toujours une pièce d'identité sur vous`,

	TopicGeneral: `Conseils généraux de sécurité pour Abidjan :
• Numéros d'urgence : Police 110, Pompiers 180, SAMU 185
• Restez informé des conditions locales
• Évitez les zones à risque identifiées
• Suivez les consignes des autorités
• En cas de doute, contactez les services compétents`,
}

// TopicOf routes a free-text question to an advisory topic
func TopicOf(question string) Topic {
	lower := strings.ToLower(question)
	for _, r := range routes {
		if utils.ContainsAny(lower, r.keywords) {
			return r.topic
		}
	}
	return TopicGeneral
}

// Advise returns the canned safety advice matching the question
func Advise(question string) string {
	return templates[TopicOf(question)]
}
