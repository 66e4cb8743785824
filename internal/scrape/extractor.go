package scrape

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/plexy44/doplen/internal/domain"
)

// bindingName is the single callback exposed into the page sandbox. Every
// extracted payload leaves the page through it.
const bindingName = "__doplenRelay"

// observerScript runs inside the page context. It samples the viewer and like
// counters immediately and every 5 seconds, and watches the chat container for
// inserted message elements. Counter text is relayed raw; normalization
// happens in Go. Evaluates to whether the chat container was present at
// install time - one that appears later is never picked up.
const observerScript = `(() => {
	const relay = (type, data) => window.` + bindingName + `(JSON.stringify({ type, data }));

	const sendStats = () => {
		const viewers = document.querySelector('[data-e2e="live-viewer-count"]')?.textContent || '';
		const likes = document.querySelector('[data-e2e="like-count"]')?.textContent || '';
		relay('stats', { viewers, likes });
	};
	sendStats();
	setInterval(sendStats, 5000);

	const container = document.querySelector('[class*="webcast-im-message_container"]');
	if (!container) return false;

	const observer = new MutationObserver((mutations) => {
		for (const mutation of mutations) {
			for (const node of mutation.addedNodes) {
				if (node.nodeType !== Node.ELEMENT_NODE) continue;
				const userEl = node.querySelector('[data-e2e="chat-message-username"]');
				const commentEl = node.querySelector('[data-e2e="chat-message-content"]');
				if (!userEl || !commentEl) continue;
				const avatarEl = node.querySelector('img[class*="webcast-im-user-avatar"]');
				relay('comment', {
					name: userEl.innerText,
					avatar: avatarEl?.src || '',
					comment: commentEl.innerText,
				});
			}
		}
	});
	observer.observe(container, { childList: true, subtree: true });
	return true;
})()`

// instrument exposes the relay binding, wires its calls to the event channel
// and installs the in-page observers. Called once per successful Open.
func (s *PageSession) instrument() error {
	err := chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.AddBinding(bindingName).Do(ctx)
	}))
	if err != nil {
		return err
	}

	chromedp.ListenTarget(s.tabCtx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventBindingCalled); ok && e.Name == bindingName {
			if event, ok := decodeRawEvent(e.Payload); ok {
				s.emit(event)
			}
		}
	})
	s.watchTabHealth()

	var chatObserved bool
	if err := chromedp.Run(s.tabCtx, chromedp.Evaluate(observerScript, &chatObserved)); err != nil {
		return err
	}
	if !chatObserved {
		slog.Warn("Chat container not found, relaying stats only", "target", s.target, "session_id", s.id)
	}
	return nil
}

// decodeRawEvent turns a relayed page payload into a domain event. Unknown or
// malformed payloads are dropped.
func decodeRawEvent(payload string) (domain.Event, bool) {
	var raw struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		slog.Debug("Dropping malformed page payload", "error", err)
		return domain.Event{}, false
	}

	switch raw.Type {
	case "stats":
		var data struct {
			Viewers string `json:"viewers"`
			Likes   string `json:"likes"`
		}
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return domain.Event{}, false
		}
		return domain.Event{
			Type: domain.EventTypeStats,
			Data: domain.StatsData{
				Viewers: ParseStat(data.Viewers),
				Likes:   ParseStat(data.Likes),
			},
		}, true

	case "comment":
		var data struct {
			Name    string `json:"name"`
			Avatar  string `json:"avatar"`
			Comment string `json:"comment"`
		}
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return domain.Event{}, false
		}
		name := strings.TrimSpace(data.Name)
		comment := strings.TrimSpace(data.Comment)
		if name == "" || comment == "" {
			return domain.Event{}, false
		}
		return domain.Event{
			Type: domain.EventTypeComment,
			Data: domain.CommentData{
				ID:      "c-" + uuid.NewString(),
				User:    domain.User{Name: name, Avatar: data.Avatar},
				Comment: comment,
			},
		}, true

	case "gift":
		// Never produced by observerScript today; decoded so a future gift
		// hook only needs a page-side change.
		var data struct {
			Name     string `json:"name"`
			Avatar   string `json:"avatar"`
			GiftName string `json:"giftName"`
			Amount   int    `json:"amount"`
		}
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return domain.Event{}, false
		}
		name := strings.TrimSpace(data.Name)
		if name == "" || data.GiftName == "" {
			return domain.Event{}, false
		}
		amount := data.Amount
		if amount < 1 {
			amount = 1
		}
		return domain.Event{
			Type: domain.EventTypeGift,
			Data: domain.GiftData{
				ID:       "g-" + uuid.NewString(),
				User:     domain.User{Name: name, Avatar: data.Avatar},
				GiftName: data.GiftName,
				Amount:   amount,
			},
		}, true

	default:
		slog.Debug("Dropping page payload with unknown type", "type", raw.Type)
		return domain.Event{}, false
	}
}
