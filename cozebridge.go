// Package cozebridge translates text through a Coze bot.
//
// A translation opens a Coze chat with the source text as the first user
// turn, polls the chat until it completes, and returns the last answer the
// bot produced. The host receives exactly one Outcome per call, either a
// result or a typed error.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/cozebridge"
//	    "github.com/ZaguanLabs/cozebridge/provider"
//	)
//
//	func main() {
//	    client := provider.NewCozeClient(provider.CozeConfig{})
//	    bridge := cozebridge.NewBridge(client)
//
//	    creds := cozebridge.Credentials{
//	        APIKey: os.Getenv("COZE_API_KEY"),
//	        BotID:  os.Getenv("COZE_BOT_ID"),
//	    }
//
//	    out := bridge.TranslateSync(context.Background(),
//	        cozebridge.Query{Text: "hello", From: "en", To: "zh-Hans"}, creds)
//	    if out.Error != nil {
//	        log.Fatal(out.Error.Message)
//	    }
//	    fmt.Println(out.Result.ToParagraphs[0]) // 你好
//	}
package cozebridge
