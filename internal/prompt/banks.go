package prompt

import "github.com/calvaresi/intervista/internal/interview"

// Sample questions per role and level, offered to the generator as framing.
// The generator is free to ask its own questions; these anchor difficulty.
var roleQuestions = map[interview.Role]map[interview.Level][]string{
	interview.RoleSoftwareEngineer: {
		interview.LevelJunior: {
			"What programming languages are you most comfortable with?",
			"Can you explain the difference between a list and an array?",
			"What is version control, and why is it important?",
			"Describe a project you've worked on. What was your role?",
		},
		interview.LevelMid: {
			"Explain the difference between REST and GraphQL APIs.",
			"How do you approach debugging a complex issue?",
			"Describe a time you had to refactor legacy code.",
			"What design patterns have you used in your projects?",
		},
		interview.LevelSenior: {
			"How would you design a scalable microservices architecture?",
			"Describe your approach to code review and mentoring.",
			"How do you handle technical debt in a fast-moving team?",
			"Explain a challenging system design problem you solved.",
		},
	},
	interview.RoleDataScientist: {
		interview.LevelJunior: {
			"What is the difference between supervised and unsupervised learning?",
			"How do you handle missing data in a dataset?",
			"Explain what overfitting means.",
			"What tools and libraries do you use for data analysis?",
		},
		interview.LevelMid: {
			"How would you evaluate a machine learning model?",
			"Explain cross-validation and why it's important.",
			"Describe a time you had to deal with imbalanced data.",
			"How do you approach feature engineering?",
		},
		interview.LevelSenior: {
			"How would you design an ML system for production?",
			"Explain your approach to A/B testing and experimentation.",
			"How do you ensure model fairness and bias mitigation?",
			"Describe a complex data pipeline you've designed.",
		},
	},
	interview.RoleProductManager: {
		interview.LevelJunior: {
			"What is the role of a product manager?",
			"How do you prioritize features?",
			"Describe a product you use daily and what you'd improve.",
			"How do you gather user requirements?",
		},
		interview.LevelMid: {
			"How do you balance user needs with business goals?",
			"Describe a time you had to say no to a feature request.",
			"How do you measure product success?",
			"Explain your approach to roadmap planning.",
		},
		interview.LevelSenior: {
			"How do you align product strategy with company vision?",
			"Describe a time you led a product pivot.",
			"How do you handle competing stakeholder interests?",
			"Explain your approach to building product teams.",
		},
	},
}

var generalQuestions = []string{
	"Tell me about yourself and your background.",
	"What interests you about this role?",
	"Describe a challenge you've faced and how you overcame it.",
	"Where do you see yourself in 5 years?",
}

// sampleQuestions picks the question bank for a role and level, falling
// back to the general bank when no specific one exists.
func sampleQuestions(role interview.Role, level interview.Level) []string {
	if byLevel, ok := roleQuestions[role]; ok {
		if qs := byLevel[level]; len(qs) > 0 {
			return qs
		}
	}
	return generalQuestions
}
