package weather

import "time"

// Alert mirrors the National Weather Service CAP v1.2 alert shape the
// upstream provider publishes. AffectedZones carries whatever
// representation the provider used (bare codes or URLs); callers resolve
// those with ids.ParseZoneCode before matching against monitored zones.
type Alert struct {
	AffectedZones []string `json:"affectedZones"`
	Status        string   `json:"status"`
	MessageType   string   `json:"messageType"`

	Sent      time.Time  `json:"sent"`
	Effective time.Time  `json:"effective"`
	Onset     *time.Time `json:"onset,omitempty"`
	Expires   time.Time  `json:"expires"`
	Ends      *time.Time `json:"ends,omitempty"`

	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Certainty string `json:"certainty"`
	Urgency   string `json:"urgency"`

	Event       string  `json:"event"`
	Headline    *string `json:"headline,omitempty"`
	Description string  `json:"description"`
	Instruction *string `json:"instruction,omitempty"`
	Response    string  `json:"response"`
}

// CAP enumerations. These are plain strings on Alert itself (the provider's
// wire format, and some CAP feeds, aren't strict about matching this exact
// set) but the constants document the values the provider is known to send.
const (
	AlertStatusActual    = "Actual"
	AlertStatusExercise  = "Exercise"
	AlertStatusSystem    = "System"
	AlertStatusTest      = "Test"
	AlertStatusDraft     = "Draft"

	AlertMessageTypeAlert  = "Alert"
	AlertMessageTypeUpdate = "Update"
	AlertMessageTypeCancel = "Cancel"
	AlertMessageTypeAck    = "Ack"
	AlertMessageTypeError  = "Error"

	AlertCategoryGeo       = "Geo"
	AlertCategoryMet       = "Met"
	AlertCategorySafety    = "Safety"
	AlertCategorySecurity  = "Security"
	AlertCategoryRescue    = "Rescue"
	AlertCategoryFire      = "Fire"
	AlertCategoryHealth    = "Health"
	AlertCategoryEnv       = "Env"
	AlertCategoryTransport = "Transport"
	AlertCategoryInfra     = "Infra"
	AlertCategoryCBRNE     = "CBRNE"
	AlertCategoryOther     = "Other"

	AlertSeverityExtreme  = "Extreme"
	AlertSeveritySevere   = "Severe"
	AlertSeverityModerate = "Moderate"
	AlertSeverityMinor    = "Minor"
	AlertSeverityUnknown  = "Unknown"

	AlertCertaintyObserved = "Observed"
	AlertCertaintyLikely   = "Likely"
	AlertCertaintyPossible = "Possible"
	AlertCertaintyUnlikely = "Unlikely"
	AlertCertaintyUnknown  = "Unknown"

	AlertUrgencyImmediate = "Immediate"
	AlertUrgencyExpected  = "Expected"
	AlertUrgencyFuture    = "Future"
	AlertUrgencyPast      = "Past"
	AlertUrgencyUnknown   = "Unknown"

	AlertResponseShelter  = "Shelter"
	AlertResponseEvacuate = "Evacuate"
	AlertResponsePrepare  = "Prepare"
	AlertResponseExecute  = "Execute"
	AlertResponseAvoid    = "Avoid"
	AlertResponseMonitor  = "Monitor"
	AlertResponseAssess   = "Assess"
	AlertResponseAllClear = "AllClear"
	AlertResponseNone     = "None"
)
