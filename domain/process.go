package domain

// ProcessSample is a point-in-time view of the relay process resources.
type ProcessSample struct {
	PID    PID
	Status PidStatus
	Cpu    float64
	RSS    uint64
}

type PID int32
type PidStatus string

const (
	RUNNING PidStatus = "RUNNING"
	SLEEP   PidStatus = "SLEEP"
	STOP    PidStatus = "STOP"
	ZOMBIE  PidStatus = "ZOMBIE"
	UNKNOWN PidStatus = "UNKNOWN"
)

// gopsutil reports the state as the single letter from /proc/<pid>/stat.
var statusByLetter = map[string]PidStatus{
	"R": RUNNING,
	"S": SLEEP,
	"T": STOP,
	"Z": ZOMBIE,
}

// ToStatus returns UNKNOWN for any state the relay does not report on.
func ToStatus(letter string) PidStatus {
	if status, ok := statusByLetter[letter]; ok {
		return status
	}
	return UNKNOWN
}
