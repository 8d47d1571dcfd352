package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe routes messages matching topic (wildcards allowed) to h. The
// route is remembered and re-subscribed after reconnects.
func (c *Client) Subscribe(topic string, qos byte, h MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case h == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.mu.Lock()
	c.routes[topic] = route{qos: qos, handler: h}
	c.mu.Unlock()

	if err := await(c.paho.Subscribe(topic, qos, c.adapt(h)), ErrSubscribeFailed); err != nil {
		c.dropRoute(topic)
		return err
	}
	return nil
}

// Unsubscribe forgets topic locally and at the broker.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.dropRoute(topic)
	return await(c.paho.Unsubscribe(topic), ErrSubscribeFailed)
}

// SubscriptionCount returns how many routes are remembered.
func (c *Client) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.routes)
}

// HasSubscription reports whether topic, as passed to Subscribe, is routed.
func (c *Client) HasSubscription(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.routes[topic]
	return ok
}

func (c *Client) dropRoute(topic string) {
	c.mu.Lock()
	delete(c.routes, topic)
	c.mu.Unlock()
}

// await waits up to defaultPublishTimeout for tok and wraps any failure in kind.
func await(tok pahomqtt.Token, kind error) error {
	if !tok.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: no acknowledgement within %v", kind, defaultPublishTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}
