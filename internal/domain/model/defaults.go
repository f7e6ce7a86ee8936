package model

// DefaultPlayer is the record of a fresh player.
func DefaultPlayer(maxHealth int) Player {
	return Player{Health: maxHealth, MaxHealth: maxHealth, Level: 1}
}

// DefaultHabits is the starter habit list.
func DefaultHabits() []Habit {
	return []Habit{
		{ID: "1", Name: "Hydrate", Icon: "water"},
		{ID: "2", Name: "Sunlight", Icon: "sun"},
		{ID: "3", Name: "Reading", Icon: "book"},
		{ID: "4", Name: "Sleep", Icon: "sleep"},
		{ID: "5", Name: "Exercise", Icon: "exercise"},
		{ID: "6", Name: "Focus", Icon: "coffee"},
	}
}

// GoalSlots is the fixed number of North Star goals.
const GoalSlots = 3

// DefaultGoals returns the placeholder North Star goals.
func DefaultGoals() []Goal {
	return []Goal{
		{ID: 1, Text: "Set your first annual goal"},
		{ID: 2, Text: "Set your second annual goal"},
		{ID: 3, Text: "Set your third annual goal"},
	}
}

// BigThreeLimit caps the big three list.
const BigThreeLimit = 3

// DefaultCatalog is the reward shop inventory.
func DefaultCatalog() []Reward {
	return []Reward{
		{ID: "break", Name: "15 min break", Description: "Guilt-free scroll time", Cost: 20, Icon: "star"},
		{ID: "snack", Name: "Favorite snack", Description: "Treat yourself!", Cost: 35, Icon: "gift"},
		{ID: "episode", Name: "1 episode", Description: "Watch something fun", Cost: 50, Icon: "star"},
		{ID: "skip-chore", Name: "Skip a chore", Description: "Tomorrow problem", Cost: 75, Icon: "gift"},
		{ID: "outing", Name: "Special outing", Description: "Go somewhere nice", Cost: 150, Icon: "trophy"},
		{ID: "big-reward", Name: "Big reward", Description: "Define your own!", Cost: 300, Icon: "trophy"},
	}
}

// DefaultRoutines returns the built-in focus routines.
func DefaultRoutines() []Routine {
	return []Routine{
		{Key: "morning", Name: "Morning Launch", Steps: []RoutineStep{
			{ID: "m1", Name: "Make bed", Seconds: 60},
			{ID: "m2", Name: "Brush teeth", Seconds: 120},
			{ID: "m3", Name: "Wash face", Seconds: 60},
			{ID: "m4", Name: "Get dressed", Seconds: 180},
			{ID: "m5", Name: "Drink water", Seconds: 30},
		}},
		{Key: "focus", Name: "Deep Focus", Steps: []RoutineStep{
			{ID: "f1", Name: "Clear desk", Seconds: 60},
			{ID: "f2", Name: "Set intention", Seconds: 30},
			{ID: "f3", Name: "Deep work", Seconds: 1500},
			{ID: "f4", Name: "Short break", Seconds: 300},
		}},
		{Key: "evening", Name: "Evening Wind-down", Steps: []RoutineStep{
			{ID: "e1", Name: "Review day", Seconds: 120},
			{ID: "e2", Name: "Prep tomorrow", Seconds: 180},
			{ID: "e3", Name: "Wind down", Seconds: 600},
		}},
	}
}
