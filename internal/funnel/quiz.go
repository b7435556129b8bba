package funnel

// Question is one step of the intro quiz.
type Question struct {
	ID      string
	Prompt  string
	Answers []string
	Correct int
	Score   int
}

// DefaultQuiz is the fixed intro quiz shown before the terminal.
var DefaultQuiz = []Question{
	{
		ID:      "who_prints",
		Prompt:  "Who can create more dollars out of thin air?",
		Answers: []string{"Anyone with a printer", "Central banks", "Nobody"},
		Correct: 1,
		Score:   10,
	},
	{
		ID:      "savings",
		Prompt:  "What happens to your savings when more money is printed?",
		Answers: []string{"They grow", "They buy less", "Nothing changes"},
		Correct: 1,
		Score:   10,
	},
	{
		ID:      "supply",
		Prompt:  "How many bitcoin will ever exist?",
		Answers: []string{"As many as needed", "21 million", "One billion"},
		Correct: 1,
		Score:   10,
	},
}

// shakePattern is the horizontal offset per frame of the wrong-answer cue.
var shakePattern = []int{3, -3, 2, -2, 1, -1, 0}
