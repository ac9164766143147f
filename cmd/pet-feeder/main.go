// Command pet-feeder drives a food-dispenser servo over PCA9685 PWM,
// serving a web control page and publishing feed events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/pet-feeder/internal/button"
	"github.com/sweeney/pet-feeder/internal/config"
	"github.com/sweeney/pet-feeder/internal/feeder"
	"github.com/sweeney/pet-feeder/internal/mqtt"
	"github.com/sweeney/pet-feeder/internal/servo"
	"github.com/sweeney/pet-feeder/internal/status"
	"github.com/sweeney/pet-feeder/internal/web"
)

// options holds the daemon's launch configuration.
type options struct {
	httpAddr       string
	broker         string
	heartbeat      time.Duration
	buttonPin      int
	buttonPoll     time.Duration
	buttonDebounce time.Duration
	i2cBus         string
	servoAddr      uint
	servoChannel   int
	restDuty       uint
	feedDuty       uint
	resetDelay     time.Duration
	interval       int
	feedOnce       bool
}

// registerFlags binds the daemon flags to the given flag set.
func registerFlags(fs *flag.FlagSet) *options {
	var o options
	fs.StringVar(&o.httpAddr, "http", ":80", "HTTP control address (empty to disable)")
	fs.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	fs.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.IntVar(&o.buttonPin, "button-pin", button.DefaultPin, "BCM pin number for the feed button (-1 to disable)")
	fs.DurationVar(&o.buttonPoll, "button-poll", 20*time.Millisecond, "Button polling interval")
	fs.DurationVar(&o.buttonDebounce, "button-debounce", 60*time.Millisecond, "Button debounce duration")
	fs.StringVar(&o.i2cBus, "i2c-bus", "", "I2C bus name (empty for the first available)")
	fs.UintVar(&o.servoAddr, "servo-addr", 0x40, "PCA9685 I2C address")
	fs.IntVar(&o.servoChannel, "servo-channel", 0, "PCA9685 channel driving the servo")
	fs.UintVar(&o.restDuty, "rest-duty", uint(servo.DefaultRestDuty), "Servo rest position duty")
	fs.UintVar(&o.feedDuty, "feed-duty", uint(servo.DefaultFeedDuty), "Servo feed position duty")
	fs.DurationVar(&o.resetDelay, "reset-delay", config.DefaultResetDelay, "Delay before returning to rest after a feed")
	fs.IntVar(&o.interval, "interval", 0, "Auto-feed interval in minutes (0 to disable)")
	fs.BoolVar(&o.feedOnce, "feed-once", false, "Run one feed cycle and exit")
	return &o
}

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts *options) error {
	httpAddr, broker := opts.httpAddr, opts.broker
	heartbeat := opts.heartbeat
	buttonPin, buttonPoll, buttonDebounce := opts.buttonPin, opts.buttonPoll, opts.buttonDebounce
	restDuty, feedDuty := uint32(opts.restDuty), uint32(opts.feedDuty)
	resetDelay, interval := opts.resetDelay, opts.interval
	// Initialize the servo driver
	drv, err := servo.NewPCA9685(opts.i2cBus, uint16(opts.servoAddr), opts.servoChannel)
	if err != nil {
		return fmt.Errorf("init servo: %w", err)
	}
	defer drv.Close()

	store := config.NewStore(config.FeederConfig{
		RestDuty:        restDuty,
		FeedDuty:        feedDuty,
		ResetDelay:      resetDelay,
		AutoFeedMinutes: interval,
	})

	// Initialize MQTT. A nil *RealPublisher must not end up in the
	// feeder.Sink interface, so the sink is only assigned when enabled.
	var publisher *mqtt.RealPublisher
	var sink feeder.Sink
	if broker != "" {
		publisher, err = mqtt.NewRealPublisher(broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		sink = publisher
	}

	fc := feeder.New(store, drv, clock.New(), sink)
	if err := fc.Start(); err != nil {
		return fmt.Errorf("start feeder: %w", err)
	}
	defer fc.Stop()

	// Single feed cycle mode
	if opts.feedOnce {
		if err := fc.FeedNow(feeder.TriggerManual); err != nil {
			return fmt.Errorf("feed: %w", err)
		}
		cfg := store.Get()
		fmt.Printf("Feeding with duty %d, resetting in %v\n", cfg.FeedDuty, cfg.ResetDelay)
		time.Sleep(cfg.ResetDelay + 500*time.Millisecond)
		return nil
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      broker,
		HTTPAddr:    httpAddr,
		HeartbeatMs: heartbeat.Milliseconds(),
		ButtonPin:   buttonPin,
		PollMs:      buttonPoll.Milliseconds(),
		DebounceMs:  buttonDebounce.Milliseconds(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, fc.Status(), "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP control server
	if httpAddr != "" {
		srv := web.New(httpAddr, fc, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http control server listening on %s", httpAddr)
	}

	// Initialize the physical feed button
	var btn button.Reader
	if buttonPin >= 0 {
		btn, err = button.NewRealReader(buttonPin)
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		defer btn.Close()
	}

	log.Printf("started: rest=%d feed=%d delay=%v interval=%dm broker=%s heartbeat=%v",
		restDuty, feedDuty, resetDelay, interval, broker, heartbeat)

	ticker := time.NewTicker(buttonPoll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var pub mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if publisher != nil {
		pub = publisher
		connStatus = publisher
	}
	return runLoop(fc, btn, pub, connStatus, tracker, buttonDebounce, heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(fc *feeder.Controller, btn button.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, debounce, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	deb := button.NewDebouncer(debounce)
	lastHeartbeat := startTime

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher != nil {
				event := mqtt.SystemEvent{
					Timestamp: now(),
					Event:     "SHUTDOWN",
					Reason:    signalName,
					Retained:  true,
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					snap := tracker.Snapshot()
					event.RawPayload = status.FormatStatusEvent(snap, fc.Status(), "SHUTDOWN", signalName)
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			t := now()

			if btn != nil {
				down, err := btn.Pressed()
				if err != nil {
					log.Printf("button read error: %v", err)
				} else if deb.Process(down, t) {
					log.Printf("button press detected")
					if err := fc.FeedNow(feeder.TriggerButton); err != nil {
						log.Printf("button feed error: %v", err)
					}
				}
			}

			// Check for heartbeat
			if publisher != nil && heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				snap := fc.Status()
				log.Printf("heartbeat: uptime=%v feeds=%d resets=%d",
					snap.Uptime().Truncate(time.Second), snap.Counts.Total(), snap.Counts.Resets)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Keep MQTT state fresh for HTTP consumers
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
