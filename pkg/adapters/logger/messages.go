package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Run level messages (info)
		"Opening %s":                                              "%s を開いています",
		"Video stream %s %dx%d, duration %s":                      "映像ストリーム %s %dx%d, 長さ %s",
		"Output %s wrote %d files from %d frames":                 "出力 %[1]s: %[3]d フレームから %[2]d ファイルを書き出しました",
		"Run finished: %d packets, %d decoded, %d outputs failed": "実行完了: %d パケット, %d デコード, 失敗した出力 %d",
		"Output saved to %s":                                      "出力を %s に保存しました",
		"Interrupted, shutting down...":                           "中断されました。シャットダウン中...",

		// Source (mp4 component)
		"Opened %s: %d samples, keyframes only %t": "%s を開きました: %d サンプル, キーフレームのみ %t",

		// Spritesheet component
		"Tile size %dx%d, page %dx%d":   "タイルサイズ %dx%d, ページ %dx%d",
		"Flushed page %d with %d tiles": "ページ %d を %d タイルで書き出しました",
		"Wrote %s with %d cues":         "%s を %d キューで書き出しました",

		// Timelens component
		"Strip buffer %dx%d":               "ストリップバッファ %dx%d",
		"Dropped column at %s, strip full": "ストリップが満杯のため %s の列を破棄しました",
		"Wrote %s from %d columns":         "%[2]d 列から %[1]s を書き出しました",

		// Metadata
		"Wrote %s (%s, %dx%d)": "%s を書き出しました (%s, %dx%d)",

		// Warnings
		"Stream ended early, finalizing outputs: %s":        "ストリームが途中で終了しました。出力を確定します: %s",
		"Decode failed at %s: %s":                           "%s のデコードに失敗しました: %s",
		"Output %s failed: %s":                              "出力 %s が失敗しました: %s",
		"Timelens dropped %d columns beyond strip width %d": "タイムレンズはストリップ幅 %[2]d を超えた %[1]d 列を破棄しました",
		"Failed to save debug page %d: %s":                  "デバッグページ %d の保存に失敗しました: %s",
		"Failed to save debug frame: %s":                    "デバッグフレームの保存に失敗しました: %s",
		"Failed to save run JSON: %s":                       "実行JSONの保存に失敗しました: %s",

		// Errors
		"Run failed: %s": "実行に失敗しました: %s",
	})
}
