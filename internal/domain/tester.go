package domain

// Tester is a named testing persona used to bias the vision prompt toward a
// specific area of expertise (accessibility, security, performance, ...).
type Tester struct {
	Name      string `json:"name"`
	Biography string `json:"biography"`
}
