package intent

import (
	"fmt"
	"strings"
	"time"
)

var japaneseWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// SystemPrompt renders the fixed instruction for now. Relative expressions
// such as 明日 or 来週月曜 are resolved by the model against the date, weekday
// and offset embedded here.
func SystemPrompt(now time.Time) string {
	offset := now.Format("-07:00")
	example := time.Date(now.Year(), now.Month(), now.Day(), 14, 0, 0, 0, now.Location())

	var b strings.Builder
	b.WriteString("あなたは日本語の予定・タスク管理アシスタントです。\n")
	b.WriteString("ユーザーのメッセージを解析し、JSON形式で返してください。\n\n")
	b.WriteString("【解析ルール】\n")
	b.WriteString("1. 時刻が明示されている場合 → type: \"calendar\"（カレンダー予定）\n")
	b.WriteString("2. 時刻が明示されていない場合 → type: \"task\"（タスク）\n\n")
	b.WriteString("【出力JSON形式】\n\n")
	b.WriteString("カレンダーの場合:\n")
	fmt.Fprintf(&b, "{\n  \"type\": \"calendar\",\n  \"title\": \"予定のタイトル\",\n  \"start\": %q,\n  \"end\": %q,\n  \"description\": \"詳細説明\"\n}\n\n",
		example.Format(time.RFC3339), example.Add(time.Hour).Format(time.RFC3339))
	b.WriteString("タスクの場合:\n")
	fmt.Fprintf(&b, "{\n  \"type\": \"task\",\n  \"title\": \"タスクのタイトル\",\n  \"due\": %q,\n  \"notes\": \"メモ\"\n}\n\n",
		example.Format("2006-01-02"))
	b.WriteString("【重要】\n")
	fmt.Fprintf(&b, "- start と end は必ずISO 8601形式（%sタイムゾーン）で出力\n", offset)
	b.WriteString("- due は日付のみ（YYYY-MM-DD形式）で出力\n")
	fmt.Fprintf(&b, "- 今日の日付: %s（%s曜日）\n", now.Format("2006/01/02"), japaneseWeekdays[now.Weekday()])
	fmt.Fprintf(&b, "- 現在時刻: %s\n", now.Format("15:04:05"))
	b.WriteString("- 終了時刻が指定されていない場合は、開始時刻の1時間後を設定\n")
	b.WriteString("- 期限が指定されていないタスクは due を省略\n")
	b.WriteString("- JSON以外の文字は一切出力しないでください（コメント禁止）")
	return b.String()
}
