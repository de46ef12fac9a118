/*
© 2026–present Harald Rudell <harald.rudell@gmail.com> (https://haraldrudell.github.io/haraldrudell/)
ISC License
*/

package fullpwsh

import "testing"

func TestFanoutMultiSubscriber(t *testing.T) {
	var f = newFanout[[]string]()
	var a = f.subscribe()
	var b = f.subscribe()

	f.publish([]string{"one"})

	for _, ch := range []<-chan []string{a, b} {
		select {
		case v := <-ch:
			if len(v) != 1 || v[0] != "one" {
				t.Errorf("got %v, want [one]", v)
			}
		default:
			t.Error("subscriber missed the published value")
		}
	}
}

func TestFanoutCloseIsIdempotentAndClosesSubscribers(t *testing.T) {
	var f = newFanout[[]string]()
	var a = f.subscribe()

	f.close()
	f.close() // must not panic

	if _, ok := <-a; ok {
		t.Error("subscriber channel should be closed")
	}
}

func TestFanoutSubscribeAfterCloseYieldsClosedChannel(t *testing.T) {
	var f = newFanout[[]string]()
	f.close()
	var a = f.subscribe()
	if _, ok := <-a; ok {
		t.Error("subscribing after close should yield an already-closed channel")
	}
}

func TestBroadcastSetSuccessDecodesJSON(t *testing.T) {
	var bc = newBroadcastSet()
	var ch = bc.success.subscribe()

	bc.Success([]byte(`["a", 1, true]`))

	select {
	case v := <-ch:
		if len(v) != 3 {
			t.Fatalf("got %v, want 3 elements", v)
		}
	default:
		t.Fatal("success subscriber missed the published value")
	}
}

func TestBroadcastSetSuccessMalformedGoesToErrorStream(t *testing.T) {
	var bc = newBroadcastSet()
	var errCh = bc.errorS.subscribe()

	bc.Success([]byte(`not json`))

	select {
	case v := <-errCh:
		if len(v) == 0 {
			t.Fatal("expected a malformed-payload message on the error stream")
		}
	default:
		t.Fatal("error subscriber missed the published value")
	}
}
