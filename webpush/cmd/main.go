package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hatstand/dashwatch/model"
	"github.com/hatstand/dashwatch/webpush"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
)

func main() {
	var database, subscribe, key, subscriber, message string
	var ttl int
	var timeout time.Duration
	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription("manage webpush subscriptions and send test notifications")
	flagSet.StringVarP(&database, "database", "db", "dashwatch.db", "sqlite database holding subscriptions")
	flagSet.StringVarP(&subscribe, "subscribe", "s", "", "store the subscription JSON in this file")
	flagSet.StringVar(&key, "key", "", "Private VAPID key for sending webpush requests")
	flagSet.StringVar(&subscriber, "subscriber", "", "VAPID subscriber email, e.g. you@example.com")
	flagSet.IntVar(&ttl, "ttl", 60, "notification time to live in seconds")
	flagSet.DurationVar(&timeout, "timeout", webpush.DefaultTimeout, "timeout for each push request")
	flagSet.StringVarP(&message, "message", "m", "Test", "message to send")
	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	db, err := model.OpenDatabase(database)
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	defer db.Close()

	if subscribe != "" {
		data, err := os.ReadFile(subscribe)
		if err != nil {
			gologger.Fatal().Msgf("%s", err)
		}
		sub, err := webpush.SubscriptionFromJSON(data)
		if err != nil {
			gologger.Fatal().Msgf("%s", err)
		}
		if err := db.Subscribe(sub); err != nil {
			gologger.Fatal().Msgf("%s", err)
		}
		gologger.Info().Msgf("Subscribed %s", sub.Endpoint)
		return
	}

	if key == "" || subscriber == "" {
		gologger.Fatal().Msg("-key and -subscriber are required to send")
	}
	n := webpush.NewNotifier(db, webpush.Options{Key: key, Subscriber: subscriber, TTL: ttl, Timeout: timeout}, nil)
	delivered, err := n.Notify([]byte(message))
	if err != nil {
		gologger.Fatal().Msgf("%s", err)
	}
	fmt.Printf("delivered to %d subscriptions\n", delivered)
}
