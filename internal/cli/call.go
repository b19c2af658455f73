package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mzahid786/paircall/internal/config"
	"github.com/mzahid786/paircall/internal/logging"
	"github.com/mzahid786/paircall/internal/media"
	"github.com/mzahid786/paircall/internal/rtc"
	"github.com/mzahid786/paircall/internal/rtc/pion"
	"github.com/mzahid786/paircall/internal/signalclient"
	"github.com/mzahid786/paircall/internal/ui"
	"github.com/mzahid786/paircall/internal/wire"
)

const helloTimeout = 10 * time.Second

// runCall drives one call attempt end to end: connect the signal channel,
// wait for the room's hello, negotiate through the session, and hand the
// rest to the UI until someone hangs up.
func runCall(cmd *cobra.Command, code string) error {
	log := logging.New(zerolog.ErrorLevel)
	ctx := cmd.Context()

	cfg, err := config.LoadClient(clientOptions())
	if err != nil {
		return err
	}

	url, err := cfg.SignalURL(code)
	if err != nil {
		return err
	}

	ch := signalclient.New(url)
	if err := ch.Connect(ctx); err != nil {
		return fmt.Errorf("connect to signaling server: %w", err)
	}
	defer ch.Close()

	hello, err := awaitHello(ch)
	if err != nil {
		return err
	}
	role := hello.Role

	src, err := localSource()
	if err != nil {
		return err
	}
	if err := src.Start(); err != nil {
		return fmt.Errorf("start local media: %w", err)
	}
	defer src.Stop()

	engine, err := pion.New(pion.Config{
		STUNServers: cfg.STUNServers,
		TURNServer:  cfg.TURNServer,
		TURNUser:    cfg.TURNUser,
		TURNPass:    cfg.TURNPass,
	}, src)
	if err != nil {
		return fmt.Errorf("create media engine: %w", err)
	}

	var call *ui.Call
	sess := rtc.NewSession(role, src, ch.Send, engine, rtc.Callbacks{
		OnStatus: func(s string) { call.Status(s) },
		OnError:  func(e string) { call.Error(e) },
		OnRemoteStream: func(s *rtc.RemoteStream) {
			call.Status(fmt.Sprintf("Receiving %d track(s)", len(s.Tracks())))
		},
	})
	defer sess.Close()

	call = ui.NewCall(code, string(role), ui.CallHandlers{
		SendChat: func(text string) {
			ch.Send(wire.Chat(text, time.Now().UnixMilli()))
		},
		SetMuted: func(muted bool) {
			sess.SetMediaEnabled(media.Audio, !muted)
		},
	})

	if hello.Peers == 2 {
		sess.SetPeerPresent(true)
	}

	go func() {
		// The offerer may already have its peer from the hello.
		if err := sess.MaybeStart(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start negotiation")
			call.Error("Negotiation failed")
		}

		for msg := range ch.Events() {
			switch msg.T {
			case wire.TypePeerJoined:
				sess.SetPeerPresent(true)
				call.PeerJoined()
				if err := sess.MaybeStart(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to start negotiation")
					call.Error("Negotiation failed")
				}

			case wire.TypePeerLeft:
				sess.SetPeerPresent(false)
				call.PeerLeft()

			case wire.TypeFull:
				call.RoomFull()

			case wire.TypeRelay:
				payload, err := wire.DecodeRelay(msg.Payload)
				if err != nil {
					log.Debug().Err(err).Msg("Dropping unrecognized relay payload")
					continue
				}
				if payload.T == wire.TypeChat {
					call.Chat(payload.Text, payload.TS)
					continue
				}
				if err := sess.Handle(ctx, payload); err != nil {
					log.Error().Err(err).Str("type", payload.T).Msg("Negotiation error")
					call.Error("Negotiation failed")
				}
			}
		}
		// Transport gone; the synthesized peer-left above already told the
		// user, this just releases the terminal.
		call.Quit()
	}()

	return call.Run()
}

// awaitHello reads the room's first frame. Anything else means we did not
// get a member slot.
func awaitHello(ch *signalclient.Channel) (wire.Message, error) {
	select {
	case msg, ok := <-ch.Events():
		if !ok {
			return wire.Message{}, fmt.Errorf("signaling connection closed before joining")
		}
		switch msg.T {
		case wire.TypeHello:
			return msg, nil
		case wire.TypeFull:
			return wire.Message{}, fmt.Errorf("room is full")
		default:
			return wire.Message{}, fmt.Errorf("unexpected %q before hello", msg.T)
		}
	case <-time.After(helloTimeout):
		return wire.Message{}, fmt.Errorf("timed out waiting for the room")
	}
}

func localSource() (media.Source, error) {
	if flags.audioFile == "" {
		return media.Silent{}, nil
	}
	return media.NewFileSource(flags.audioFile)
}
