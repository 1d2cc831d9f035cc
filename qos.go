package mqtt311

import "errors"

// ErrInvalidQoS is returned when a quality of service value is outside 0-2.
var ErrInvalidQoS = errors.New("invalid QoS level")

// QoS is an MQTT quality of service level.
type QoS byte

// Quality of service levels.
const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
	QoSExactlyOnce QoS = 2
)

// Valid returns true if the QoS level is 0, 1 or 2.
func (q QoS) Valid() bool {
	return q <= QoSExactlyOnce
}

// String returns the string representation of the QoS level.
func (q QoS) String() string {
	switch q {
	case QoSAtMostOnce:
		return "at-most-once"
	case QoSAtLeastOnce:
		return "at-least-once"
	case QoSExactlyOnce:
		return "exactly-once"
	default:
		return "invalid"
	}
}
