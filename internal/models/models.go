package models

// Quiz is one question instance with its lifecycle flags and the reference
// answer/misconception sets used for clustering.
type Quiz struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	Misconceptions []string `json:"misconceptions"`
	CorrectAnswers []string `json:"correctAnswers"`
	Started        bool     `json:"started"`
	Ended          bool     `json:"ended"`
}

// StudentResponse is one participant's free-text answer, keyed by username
// within a quiz.
type StudentResponse struct {
	Username string `json:"username"`
	Response string `json:"response"`
}

// Cluster is one labeled group of responses returned by the classification
// model.
type Cluster struct {
	ClusterID          int               `json:"clusterId"`
	ClusterLabel       string            `json:"clusterLabel"`
	ClusterDescription string            `json:"clusterDescription"`
	Members            []StudentResponse `json:"members"`
}

type ClusterSet struct {
	Clusters []Cluster `json:"clusters"`
}
