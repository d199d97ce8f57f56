// Package main provides localization for the vidsprite CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Runtime messages
		"output directory is required (-o or output in the config file)": "出力ディレクトリが必要です（-o または設定ファイルの output）",
		"Failed to write metrics to %s: %s":                               "メトリクスを %s に書き込めませんでした: %s",
		"Failed to write summary to %s: %s":                               "サマリーを %s に書き込めませんでした: %s",
		"%d of %d outputs failed":                                         "%[2]d 個中 %[1]d 個の出力が失敗しました",
		"vidsprite version %s":                                            "vidsprite バージョン %s",

		// Summary labels
		"Preview Summary":      "プレビューサマリー",
		"Input":                "入力",
		"Run":                  "実行",
		"Settings":             "設定",
		"Outputs":              "出力",
		"Item":                 "項目",
		"Value":                "値",
		"Setting":              "設定項目",
		"File":                 "ファイル",
		"Container":            "コンテナ",
		"Codec":                "コーデック",
		"Frame Size":           "フレームサイズ",
		"Duration":             "長さ",
		"File Size":            "ファイルサイズ",
		"Bitrate":              "ビットレート",
		"Run ID":               "実行ID",
		"State":                "状態",
		"Packets":              "パケット数",
		"Decoded Frames":       "デコードしたフレーム数",
		"Decode Errors":        "デコードエラー",
		"Truncated":            "途中終了",
		"Yes":                  "はい",
		"Elapsed":              "経過時間",
		"Image Format":         "画像形式",
		"Quality":              "品質",
		"Scaler":               "スケーラー",
		"Spritesheet Interval": "スプライトシート間隔",
		"Grid":                 "グリッド",
		"Max Tile Size":        "最大タイルサイズ",
		"Timelens Interval":    "タイムレンズ間隔",
		"Timelens Size":        "タイムレンズサイズ",
		"Every frame":          "全フレーム",
		"Output":               "出力",
		"Frames":               "フレーム数",
		"Files":                "ファイル",
		"Status":               "状態",
		"OK":                   "成功",
		"Failed":               "失敗",
		"Generated at":         "生成日時",
		"done":                 "完了",
		"failed":               "失敗",
	})
}
