package rules

import "github.com/kaushiksai711/Karma-AI/internal/domain"

// DefaultRuleConfigs returns the builtin reward rule catalog, used
// when the configuration file does not define its own rules.
func DefaultRuleConfigs() map[string]domain.RuleConfig {
	return map[string]domain.RuleConfig{
		"streak_engager": {
			Conditions:  []string{"login_streak >= 3", "posts_created >= 1", "quizzes_completed >= 1"},
			Description: "Consistent logins + content and quiz activity",
		},
		"quiz_enthusiast": {
			Conditions:  []string{"quizzes_completed >= 2", "login_streak >= 2"},
			Description: "Frequent quizzes + regular logins",
		},
		"community_champion": {
			Conditions:  []string{"posts_created >= 2", "upvotes_received >= 12", "buddies_messaged >= 2"},
			Description: "High-quality posts + community engagement",
		},
		"knowledge_contributor": {
			Conditions:  []string{"quizzes_completed >= 2", "karma_earned_today >= 15"},
			Description: "Active learning + high karma earned",
		},
		"social_butterfly": {
			Conditions:  []string{"buddies_messaged >= 2", "comments_written >= 2", "upvotes_received >= 5"},
			Description: "Active messaging + content contributions",
		},
		"balanced_contributor": {
			Conditions:  []string{"posts_created >= 1", "comments_written >= 1", "quizzes_completed >= 1"},
			Description: "Posts and comments + social and karma activity",
		},
		"karma_trader": {
			Conditions:  []string{"karma_spent >= 10", "karma_earned_today >= 10"},
			Description: "Karma spent + karma earned",
		},
		"rising_star": {
			Conditions:  []string{"upvotes_received >= 5", "karma_earned_today >= 10"},
			Description: "New user + strong early engagement",
		},
		"creative_scholar": {
			Conditions:  []string{"posts_created >= 1", "quizzes_completed >= 1", "upvotes_received >= 3"},
			Description: "Creative posts + quiz participation",
		},
		"community_glue": {
			Conditions:  []string{"buddies_messaged >= 4", "karma_spent >= 8", "login_streak >= 2"},
			Description: "Community messaging + karma sharing",
		},
		"active_supporter": {
			Conditions:  []string{"login_streak >= 3", "karma_earned_today >= 8"},
			Description: "Consistent logins + karma contributions",
		},
		"mystery_enthusiast": {
			Conditions:  []string{"quizzes_completed >= 1 and (posts_created >= 1 or comments_written >= 2)"},
			Description: "Quiz enthusiasm + content creation",
		},
		"quiz_completion": {
			Conditions:  []string{"quizzes_completed >= 1"},
			Description: "Quiz completion + learning effort",
		},
	}
}

// DefaultBoxTypes returns the builtin box type table. The mystery
// entry doubles as the fallback for categories without a box config.
func DefaultBoxTypes() map[string]domain.BoxTypeConfig {
	weights := domain.DefaultRarityWeights

	return map[string]domain.BoxTypeConfig{
		"mystery":               {Name: "Mystery Box", BaseKarma: 15, RarityWeights: weights()},
		"streak_engager":        {Name: "Streak Engager Box", BaseKarma: 20, RarityWeights: weights()},
		"quiz_enthusiast":       {Name: "Quiz Enthusiast Box", BaseKarma: 20, RarityWeights: weights()},
		"community_champion":    {Name: "Community Champion Box", BaseKarma: 30, RarityWeights: weights()},
		"knowledge_contributor": {Name: "Knowledge Contributor Box", BaseKarma: 25, RarityWeights: weights()},
		"social_butterfly":      {Name: "Social Butterfly Box", BaseKarma: 20, RarityWeights: weights()},
		"balanced_contributor":  {Name: "Balanced Contributor Box", BaseKarma: 25, RarityWeights: weights()},
		"karma_trader":          {Name: "Karma Trader Box", BaseKarma: 25, RarityWeights: weights()},
		"rising_star":           {Name: "Rising Star Box", BaseKarma: 20, RarityWeights: weights()},
		"creative_scholar":      {Name: "Creative Scholar Box", BaseKarma: 25, RarityWeights: weights()},
		"community_glue":        {Name: "Community Glue Box", BaseKarma: 25, RarityWeights: weights()},
		"active_supporter":      {Name: "Active Supporter Box", BaseKarma: 20, RarityWeights: weights()},
		"mystery_enthusiast":    {Name: "Mystery Enthusiast Box", BaseKarma: 20, RarityWeights: weights()},
		"quiz_completion":       {Name: "Quiz Completion Box", BaseKarma: 15, RarityWeights: weights()},
	}
}
