package seo

import "github.com/dusk-indust/seoplan/internal/generator"

// StrategicProfile is the output of the strategic stage.
type StrategicProfile struct {
	Avatar      string      `json:"avatar"`
	PainPoints  []PainPoint `json:"painPoints"`
	Vocabulary  Vocabulary  `json:"vocabulaireSectoriel"`
	Angles      []string    `json:"angles"`
	ProfitScore float64     `json:"scoreRentabilite"`
}

// PainPoint pairs a customer problem with the answer the business offers.
type PainPoint struct {
	Problem  string `json:"probleme"`
	Solution string `json:"solution"`
}

// Vocabulary is the sector vocabulary used by the trade and by customers.
type Vocabulary struct {
	TradeTerms        []string `json:"termesMetier"`
	CustomerPhrases   []string `json:"expressionsClients"`
	FrequentQuestions []string `json:"questionsFrequentes"`
}

// ClusterPlan is the output of the cluster stage.
type ClusterPlan struct {
	Pillars []Pillar `json:"piliers"`
}

// Pillar is a top-level topic with its keyword clusters.
type Pillar struct {
	Title    string           `json:"titre"`
	Keyword  string           `json:"motCle"`
	Intent   string           `json:"intention"`
	Clusters []KeywordCluster `json:"clusters"`
}

// KeywordCluster is a group of related keywords under a pillar.
type KeywordCluster struct {
	Title      string  `json:"titre"`
	Keyword    string  `json:"motCle"`
	Intent     string  `json:"intention"`
	Volume     float64 `json:"volumeEstime"`
	Difficulty float64 `json:"difficulte"`
}

// ContentPlan is the output of the content stage.
type ContentPlan struct {
	Items []ContentItem `json:"contenus"`
}

// ContentItem is one row of the content table.
type ContentItem struct {
	Title     string  `json:"titre"`
	Keyword   string  `json:"motCle"`
	Type      string  `json:"typeContenu"`
	Intent    string  `json:"intention"`
	Cluster   string  `json:"cluster"`
	Priority  string  `json:"priorite"`
	WordCount float64 `json:"longueurMots"`
}

// TechnicalChecklist is the output of the technical stage.
type TechnicalChecklist struct {
	Checklist []CheckItem `json:"checklist"`
	Schemas   []string    `json:"schemasRecommandes"`
}

// CheckItem is one technical action.
type CheckItem struct {
	Category string `json:"categorie"`
	Action   string `json:"action"`
	Priority string `json:"priorite"`
	Impact   string `json:"impact"`
}

// AuthorityPlan is the output of the authority stage. Sources and Queries
// are filled from search grounding, not from the model's JSON.
type AuthorityPlan struct {
	Strategies  []BacklinkStrategy   `json:"strategiesBacklinks"`
	Competitors []Competitor         `json:"concurrents"`
	Sources     []generator.Citation `json:"sources"`
	Queries     []string             `json:"requetes"`
}

// BacklinkStrategy is one link-building tactic.
type BacklinkStrategy struct {
	Tactic      string   `json:"tactique"`
	Description string   `json:"description"`
	Targets     []string `json:"cibles"`
	Effort      string   `json:"effort"`
	Impact      string   `json:"impact"`
}

// Competitor is one analysed competitor.
type Competitor struct {
	Name       string   `json:"nom"`
	URL        string   `json:"url"`
	Strengths  []string `json:"forces"`
	Weaknesses []string `json:"faiblesses"`
}

// SnippetPlan is the output of the snippet stage.
type SnippetPlan struct {
	Snippets []SnippetItem `json:"snippets"`
}

// SnippetItem targets a featured snippet for one query.
type SnippetItem struct {
	Query         string `json:"requete"`
	Format        string `json:"format"`
	Answer        string `json:"reponse"`
	TargetContent string `json:"contenuCible"`
}

// CoordinatorPlan is the output of the coordinator stage.
type CoordinatorPlan struct {
	Summary    string      `json:"resume"`
	Priorities []Priority  `json:"priorites"`
	Roadmap    []Milestone `json:"feuilleDeRoute"`
	KPIs       []string    `json:"kpis"`
}

// Priority is a prioritised action traced to the stage that proposed it.
type Priority struct {
	Action   string `json:"action"`
	Stage    string `json:"stage"`
	Deadline string `json:"echeance"`
}

// Milestone lists the objectives of one roadmap month.
type Milestone struct {
	Month      float64  `json:"mois"`
	Objectives []string `json:"objectifs"`
}
