package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultActivationKeywords make a mention trigger a detailed explanation.
var DefaultActivationKeywords = []string{
	"详细", "科普", "解释", "说明", "原理", "深入", "具体",
	"详细说说", "展开讲讲", "多讲讲", "详细介绍", "深入分析",
	"详细阐述", "深度解析", "请详细", "请展开",
}

// setDefaults registers every key so BOT_* variables can override any of them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("database.path", "storage.db")
	v.SetDefault("database.max_history_messages", 200)
	v.SetDefault("database.retention", 30*24*time.Hour)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 5)
	v.SetDefault("gemini.timeout", 2*time.Minute)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("persona.name", "麦麦")
	v.SetDefault("persona.base", "你是麦麦，一个活跃在群聊里、知识丰富又乐于助人的机器人。")
	v.SetDefault("persona.default_mood", "平静")
	v.SetDefault("persona.mood_cache_ttl", time.Minute)
	v.SetDefault("persona.mood_timeout", time.Second)

	v.SetDefault("keyword_prompts.enable", true)
	v.SetDefault("keyword_prompts.case_sensitive", false)
	v.SetDefault("keyword_prompts.match_strategy", "first")
	v.SetDefault("keyword_prompts.rules", []any{})

	v.SetDefault("conversation_context.enable", true)
	v.SetDefault("conversation_context.max_messages", 20)
	v.SetDefault("conversation_context.anchor_tail_count", 5)
	v.SetDefault("conversation_context.fetch_headroom_factor", 2.0)
	v.SetDefault("conversation_context.timeout", 3*time.Second)

	v.SetDefault("content_generation.enable_tools", true)
	v.SetDefault("content_generation.search_tool_names", []string{"web_search", "search_online"})
	v.SetDefault("content_generation.extra_prompt", "")
	v.SetDefault("content_generation.generation_timeout", 2*time.Minute)

	v.SetDefault("detailed_explanation.enable", true)
	v.SetDefault("detailed_explanation.activation_keywords", DefaultActivationKeywords)
	v.SetDefault("detailed_explanation.max_total_length", 3000)
	v.SetDefault("detailed_explanation.segment_length", 400)
	v.SetDefault("detailed_explanation.min_segments", 1)
	v.SetDefault("detailed_explanation.max_segments", 4)
	v.SetDefault("detailed_explanation.send_delay", 1500*time.Millisecond)
	v.SetDefault("detailed_explanation.show_progress", true)
	v.SetDefault("detailed_explanation.strip_markdown", true)
	v.SetDefault("detailed_explanation.show_start_hint", true)
	v.SetDefault("detailed_explanation.start_hint_message", "让我详细说明一下...")

	v.SetDefault("segmentation.algorithm", "smart")
	v.SetDefault("segmentation.sentence_separators", []string{"。", "！", "？", ".", "!", "?"})
	v.SetDefault("segmentation.keep_paragraph_integrity", true)
	v.SetDefault("segmentation.min_paragraph_length", 50)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 4 * * 0")
	v.SetDefault("scheduler.tasks.history_prune.enabled", true)
	v.SetDefault("scheduler.tasks.history_prune.schedule", "30 3 * * *")

	v.SetDefault("messages.welcome", "👋 你好！在群里 @我 并带上“详细”“科普”等词，或者使用 /explain <主题>，我会给出详细的解释。")
	v.SetDefault("messages.help", "/explain <主题> - 生成详细解释\n/mood [心情] - 查看或设置当前心情（仅管理员可设置）\n/help - 显示帮助")
	v.SetDefault("messages.help_keywords_fmt", "在群里 @我 并带上以下任一词语会触发详细解释：%s")
	v.SetDefault("messages.error_unauthorized", "🚫 你没有权限执行这个操作。")
	v.SetDefault("messages.error_general", "❌ 出了点问题，请稍后再试。")
	v.SetDefault("messages.explain_usage", "ℹ️ 用法：/explain <想了解的主题>")
	v.SetDefault("messages.explain_disabled", "详细解释功能已禁用")
	v.SetDefault("messages.generation_failed", "😵 生成详细内容失败，请稍后再试。")
	v.SetDefault("messages.mood_usage", "ℹ️ 用法：/mood <心情>，不超过 32 个字")
	v.SetDefault("messages.mood_set_fmt", "心情已更新为：%s")
	v.SetDefault("messages.mood_current_fmt", "当前心情：%s")
}
