package domain

// JobStatus is the lifecycle state of a lead generation job
type JobStatus string

// Job status constants
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Source tags where a contact was discovered
type Source string

// Contact source constants
const (
	SourceOrganicSearch Source = "organic_search"
	SourcePlaces        Source = "places"
)

// Progress milestones reported while a job is processing
const (
	ProgressStarted         = 0
	ProgressGeneratingQuery = 10
	ProgressQueriesReady    = 20
	ProgressGatherSpan      = 70
	ProgressDone            = 100
)

// DefaultMaxResults is applied when a request omits max_results
const DefaultMaxResults = 50

// MaxQueries bounds the number of search queries fanned out per job
const MaxQueries = 5
