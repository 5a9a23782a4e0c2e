package service

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"signal_bot/internal/models"
)

// Фид V3 шлёт бинарные кадры FeedResponse (MarketDataFeedV3.proto).
// Разбираем только то, что нужно для тика: ltpc по каждому инструменту.
const (
	// FeedResponse
	fieldRespType      protowire.Number = 1
	fieldRespFeeds     protowire.Number = 2 // map<string, Feed>
	fieldRespCurrentTs protowire.Number = 3

	// запись map
	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2

	// Feed (oneof)
	fieldFeedLTPC       protowire.Number = 1
	fieldFeedFullFeed   protowire.Number = 2
	fieldFeedFirstLevel protowire.Number = 3

	// FullFeed (oneof)
	fieldFullMarketFF protowire.Number = 1
	fieldFullIndexFF  protowire.Number = 2

	// MarketFullFeed / IndexFullFeed / FirstLevelWithGreeks
	fieldNestedLTPC protowire.Number = 1

	// LTPC
	fieldLTP protowire.Number = 1
	fieldLTT protowire.Number = 2
	fieldLTQ protowire.Number = 3
)

// enum Type { initial_feed = 0; live_feed = 1; market_info = 2; }
const feedTypeLive = 1

type ltpc struct {
	ltp float64
	ltt int64 // ms
	ltq int64
}

// field — одно поле сообщения: скаляр в v (varint/fixed) или тело в b (bytes).
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

func walk(b []byte, fn func(f field)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v32 uint32
			v32, n = protowire.ConsumeFixed32(b)
			f.v = uint64(v32)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		fn(f)
	}
	return nil
}

// nested — тело вложенного сообщения с номером num (последнее, как в proto3).
func nested(b []byte, num protowire.Number) ([]byte, bool, error) {
	var (
		out   []byte
		found bool
	)
	err := walk(b, func(f field) {
		if f.num == num && f.typ == protowire.BytesType {
			out, found = f.b, true
		}
	})
	return out, found, err
}

func decodeLTPC(b []byte) (ltpc, error) {
	var q ltpc
	err := walk(b, func(f field) {
		switch {
		case f.num == fieldLTP && f.typ == protowire.Fixed64Type:
			q.ltp = math.Float64frombits(f.v)
		case f.num == fieldLTT && f.typ == protowire.VarintType:
			q.ltt = int64(f.v)
		case f.num == fieldLTQ && f.typ == protowire.VarintType:
			q.ltq = int64(f.v)
		}
	})
	return q, err
}

// quoteOf достаёт ltpc из Feed: ltpc | fullFeed.{marketFF,indexFF}.ltpc | firstLevelWithGreeks.ltpc.
func quoteOf(feed []byte) (*ltpc, error) {
	var (
		body []byte
		ok   bool
	)
	err := walk(feed, func(f field) {
		if f.typ != protowire.BytesType {
			return
		}
		switch f.num {
		case fieldFeedLTPC:
			body, ok = f.b, true
		case fieldFeedFullFeed:
			for _, num := range []protowire.Number{fieldFullMarketFF, fieldFullIndexFF} {
				ff, has, _ := nested(f.b, num)
				if !has {
					continue
				}
				if b, has, _ := nested(ff, fieldNestedLTPC); has {
					body, ok = b, true
				}
				break
			}
		case fieldFeedFirstLevel:
			if b, has, _ := nested(f.b, fieldNestedLTPC); has {
				body, ok = b, true
			}
		}
	})
	if err != nil || !ok {
		return nil, err
	}
	q, err := decodeLTPC(body)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ParseFrame разбирает бинарный кадр фида в тики. Кадры кроме live_feed игнорируются.
// Тики отсортированы по символу.
func ParseFrame(msg []byte) ([]models.Tick, error) {
	var (
		typ       uint64
		currentTs int64
		entries   [][]byte
	)
	err := walk(msg, func(f field) {
		switch {
		case f.num == fieldRespType && f.typ == protowire.VarintType:
			typ = f.v
		case f.num == fieldRespFeeds && f.typ == protowire.BytesType:
			entries = append(entries, f.b)
		case f.num == fieldRespCurrentTs && f.typ == protowire.VarintType:
			currentTs = int64(f.v)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode feed frame")
	}
	if typ != feedTypeLive {
		return nil, nil
	}

	out := make([]models.Tick, 0, len(entries))
	for _, e := range entries {
		var (
			key  string
			feed []byte
		)
		if err := walk(e, func(f field) {
			if f.typ != protowire.BytesType {
				return
			}
			switch f.num {
			case fieldEntryKey:
				key = string(f.b)
			case fieldEntryValue:
				feed = f.b
			}
		}); err != nil {
			return nil, errors.Wrap(err, "decode feed entry")
		}

		q, err := quoteOf(feed)
		if err != nil {
			return nil, errors.Wrapf(err, "decode feed %s", key)
		}
		if key == "" || q == nil || q.ltp <= 0 {
			continue
		}
		ms := q.ltt
		if ms == 0 {
			ms = currentTs
		}
		if ms == 0 {
			continue
		}

		out = append(out, models.Tick{
			Symbol: key,
			Price:  q.ltp,
			Qty:    float64(q.ltq),
			Time:   time.UnixMilli(ms),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

type subscribeFrame struct {
	GUID   string `json:"guid"`
	Method string `json:"method"`
	Data   struct {
		Mode           string   `json:"mode"`
		InstrumentKeys []string `json:"instrumentKeys"`
	} `json:"data"`
}

// Подписка уходит JSON-ом в бинарном сообщении.
func newSubscribeFrame(keys []string) ([]byte, error) {
	var sub subscribeFrame
	sub.GUID = strconv.FormatInt(time.Now().UnixNano(), 36)
	sub.Method = "sub"
	sub.Data.Mode = "full"
	sub.Data.InstrumentKeys = keys

	b, err := sonic.Marshal(sub)
	if err != nil {
		return nil, errors.Wrap(err, "encode subscribe frame")
	}
	return b, nil
}

type authorizeResp struct {
	Status string `json:"status"`
	Data   struct {
		RedirectURI      string `json:"authorizedRedirectUri"`
		RedirectURISnake string `json:"authorized_redirect_uri"`
	} `json:"data"`
}

func parseAuthorize(body []byte) (string, error) {
	var r authorizeResp
	if err := sonic.Unmarshal(body, &r); err != nil {
		return "", errors.Wrap(err, "decode authorize response")
	}
	uri := r.Data.RedirectURI
	if uri == "" {
		uri = r.Data.RedirectURISnake
	}
	if r.Status != "success" || uri == "" {
		return "", errors.Errorf("authorize: status=%q, no redirect uri", r.Status)
	}
	return uri, nil
}
