package relations

import (
	"polymarket-relations/models"
)

// Classifier assigns every trader a role from the qualifying edge graph.
// Roles are recomputed wholesale on every run, never mutated incrementally.
type Classifier struct {
	minCopyScore float64
	minFollowers int
}

// NewClassifier builds a classifier. Edges below minCopyScore are computed
// upstream but are not treated as evidence of copying here.
func NewClassifier(minCopyScore float64, minFollowers int) *Classifier {
	return &Classifier{minCopyScore: minCopyScore, minFollowers: minFollowers}
}

// roleRule is one row in the precedence table. Rules are evaluated in order
// and the first match wins, which keeps boundary behavior explicit instead of
// buried in nested conditionals.
type roleRule struct {
	role    models.TraderRole
	matches func(followers, leaders int) bool
}

func (c *Classifier) rules() []roleRule {
	return []roleRule{
		{models.RoleMixed, func(f, l int) bool { return f >= c.minFollowers && l >= 1 }},
		{models.RoleLeader, func(f, l int) bool { return f >= c.minFollowers }},
		{models.RoleFollower, func(f, l int) bool { return l >= 1 }},
		{models.RoleIndependent, func(f, l int) bool { return true }},
	}
}

// QualifyingEdges filters the scored edges down to the classification graph.
func (c *Classifier) QualifyingEdges(edges []models.RelationshipEdge) []models.RelationshipEdge {
	qualified := make([]models.RelationshipEdge, 0, len(edges))
	for _, e := range edges {
		if e.CopyScore >= c.minCopyScore {
			qualified = append(qualified, e)
		}
	}
	return qualified
}

// Classify builds the role mapping for every indexed trader, including those
// with no qualifying edges at all.
func (c *Classifier) Classify(edges []models.RelationshipEdge, traders []string) map[string]models.TraderRole {
	followers := make(map[string]map[string]struct{}) // leader -> distinct followers
	leaders := make(map[string]map[string]struct{})   // follower -> distinct leaders

	for _, e := range c.QualifyingEdges(edges) {
		if followers[e.Leader] == nil {
			followers[e.Leader] = make(map[string]struct{})
		}
		followers[e.Leader][e.Follower] = struct{}{}

		if leaders[e.Follower] == nil {
			leaders[e.Follower] = make(map[string]struct{})
		}
		leaders[e.Follower][e.Leader] = struct{}{}
	}

	rules := c.rules()
	roles := make(map[string]models.TraderRole, len(traders))
	for _, trader := range traders {
		f := len(followers[trader])
		l := len(leaders[trader])
		for _, rule := range rules {
			if rule.matches(f, l) {
				roles[trader] = rule.role
				break
			}
		}
	}
	return roles
}

// NetworkStats aggregates the classified graph for the run summary.
func (c *Classifier) NetworkStats(roles map[string]models.TraderRole, edges []models.RelationshipEdge) models.NetworkStats {
	stats := models.NetworkStats{Traders: len(roles)}
	for _, role := range roles {
		switch role {
		case models.RoleLeader:
			stats.Leaders++
		case models.RoleFollower:
			stats.Followers++
		case models.RoleMixed:
			stats.Mixed++
		default:
			stats.Independent++
		}
	}

	qualified := c.QualifyingEdges(edges)
	stats.Relationships = len(qualified)

	followerCounts := make(map[string]map[string]struct{})
	for _, e := range qualified {
		if followerCounts[e.Leader] == nil {
			followerCounts[e.Leader] = make(map[string]struct{})
		}
		followerCounts[e.Leader][e.Follower] = struct{}{}
	}
	if len(followerCounts) > 0 {
		total := 0
		for _, fs := range followerCounts {
			total += len(fs)
		}
		stats.AvgFollowersPerLeader = float64(total) / float64(len(followerCounts))
	}
	return stats
}
