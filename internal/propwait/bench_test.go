package propwait

import "testing"

// BenchmarkBrokerWaitWake measures the round trip from Publish to a
// woken subscriber, the same-process latency this package trades away
// the true futex wait for.
func BenchmarkBrokerWaitWake(b *testing.B) {
	broker := NewBroker()
	defer broker.Close()

	key := EntryKey("/bench/area", 42)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := broker.subscribe(key, DefaultBufferSize)
		broker.Publish(ChangeEvent{Key: key, Serial: uint32(i + 1)})
		<-w.channel
		broker.unsubscribe(w.id)
	}
}
