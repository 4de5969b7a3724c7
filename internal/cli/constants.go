package cli

// Default values for CLI flags and configurations.
const (
	// DefaultSearchPage is the first result page requested by search.
	DefaultSearchPage = 1
	// DefaultSearchSize is the default number of search results per page.
	DefaultSearchSize = 10
	// MaxTitleLength is the maximum length of a record title in search results.
	MaxTitleLength = 80
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// DefaultListTimeoutSeconds is the default wall-clock budget of a recursive listing.
	DefaultListTimeoutSeconds = 60
)
