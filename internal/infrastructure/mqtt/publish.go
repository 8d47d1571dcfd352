package mqtt

import "fmt"

// maxPayloadSize caps one message at 1 MiB.
const maxPayloadSize = 1 << 20

// Publish sends payload and waits for the broker to acknowledge it.
// Retain state-like topics such as the latest manifest; never commands.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}
	return await(c.paho.Publish(topic, qos, retained, payload), ErrPublishFailed)
}
