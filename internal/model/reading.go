package model

// SignalQuality is the device-reported quality level of a reading.
type SignalQuality string

const (
	SignalExcellent SignalQuality = "excellent"
	SignalGood      SignalQuality = "good"
	SignalFair      SignalQuality = "fair"
	SignalPoor      SignalQuality = "poor"
)

// IsValid reports whether q is one of the known quality levels.
func (q SignalQuality) IsValid() bool {
	switch q {
	case SignalExcellent, SignalGood, SignalFair, SignalPoor:
		return true
	}
	return false
}

// SensorData is the raw photoplethysmography payload attached to a reading.
// It is stored opaquely alongside the structured glucose fields.
type SensorData struct {
	Red            float64 `json:"red"`
	Infrared       float64 `json:"infrared"`
	Green          float64 `json:"green"`
	Temperature    float64 `json:"temperature"`
	MotionArtifact bool    `json:"motionArtifact"`
}

// ReadingSubmission is a glucose reading as submitted by a device.
// The timestamp arrives as a string and is parsed and normalized to UTC
// during validation.
type ReadingSubmission struct {
	DeviceID      string        `json:"deviceId"`
	UserID        string        `json:"userId"`
	Timestamp     string        `json:"timestamp"`
	GlucoseValue  int           `json:"glucoseValue"`
	Confidence    float64       `json:"confidence"`
	SensorData    SensorData    `json:"sensorData"`
	BatteryLevel  int           `json:"batteryLevel"`
	SignalQuality SignalQuality `json:"signalQuality"`
}
