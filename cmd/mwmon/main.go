package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/robotalks/mwboot/pkg/msgs"
	"github.com/robotalks/mwboot/pkg/transport/mqtt"
	"github.com/robotalks/mwboot/pkg/ui"
)

var (
	mqttURL = "mqtt://localhost:1883/"
	device  = "+"
)

func init() {
	if val := os.Getenv("MWBOOT_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&device, "device", device, "Device to watch, + for all.")
}

func printEvent(topic string, payload []byte) {
	ev, err := msgs.DecodeStatusEvent(payload)
	if err != nil {
		log.Printf("%s: bad event: %v", topic, err)
		return
	}
	switch ev.Kind {
	case msgs.KindMessage:
		log.Printf("%s #%d [%s] %s", ev.Device, ev.Frame, ui.Level(ev.Level), ev.Text)
	case msgs.KindProgress:
		log.Printf("%s #%d progress %d/%d", ev.Device, ev.Frame, ev.Done, ev.Total)
	case msgs.KindClear:
		log.Printf("%s #%d clear", ev.Device, ev.Frame)
	default:
		log.Printf("%s: %s", topic, ev.String())
	}
}

func printStats(topic string, payload []byte) {
	st, err := msgs.DecodeTransferStats(payload)
	if err != nil {
		log.Printf("%s: bad stats: %v", topic, err)
		return
	}
	log.Printf("%s [%s] 0x%06X recv %d/%d written %d full %d (max %d)",
		st.Device, st.State, st.Addr, st.Received, st.Length, st.Written, st.FullBuffers, st.MaxFull)
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	u, err := url.Parse(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueueFromURL(u)
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	q.Sub(device+"/#", func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.TopicStatus):
			printEvent(topic, payload)
		case strings.HasSuffix(topic, "/"+mqtt.TopicStats):
			printStats(topic, payload)
		}
	})
	<-(chan struct{})(nil)
}
