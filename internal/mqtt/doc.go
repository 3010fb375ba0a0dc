// Package mqtt publishes fridge state to an MQTT broker.
//
// Each fridge gets an availability topic and a state topic under a common
// prefix, keyed by the fridge's address:
//
//	fridge/C8:47:8C:00:00:01/online   true | false
//	fridge/C8:47:8C:00:00:01/state    {"on":true,"runMode":"max",...}
//
// A Publisher plugs into session.PollLoop through Handle. A successful poll
// publishes online=true once, then the state whenever it changes. A failed
// poll publishes online=false once per outage. Dial sets a retained last
// will on the online topic so the broker reports the fridge offline if
// icebox itself goes away.
package mqtt
