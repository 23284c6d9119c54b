// Package metricskey describes the metrics emitted by the agent.
package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsRunsStarted = metrics.Describe{
		Type: metrics.TypeCounter,
		Name: "stats_agent_runs_started",
		Help: "stats_agent_runs_started provides total agent runs started",
	}

	StatsRunsSucceeded = metrics.Describe{
		Type: metrics.TypeCounter,
		Name: "stats_agent_runs_succeeded",
		Help: "stats_agent_runs_succeeded provides total agent runs succeeded",
	}

	StatsRunsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_agent_runs_failed",
		Help:         "stats_agent_runs_failed provides total agent runs failed",
		RequiredTags: []string{"reason"},
	}

	StatsLLMCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_succeeded",
		Help:         "stats_llm_calls_succeeded provides total LLM calls succeeded",
		RequiredTags: []string{"model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total LLM calls failed",
		RequiredTags: []string{"model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"model"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls to unknown tools",
		RequiredTags: []string{"tool"},
	}

	StatsRegistryResolutions = metrics.Describe{
		Type: metrics.TypeCounter,
		Name: "stats_registry_resolutions",
		Help: "stats_registry_resolutions provides total tool registry resolutions",
	}

	StatsRegistryServerErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_registry_server_errors",
		Help:         "stats_registry_server_errors provides total tool server discovery failures",
		RequiredTags: []string{"server"},
	}

	StatsWebhookNotifications = metrics.Describe{
		Type: metrics.TypeCounter,
		Name: "stats_webhook_notifications",
		Help: "stats_webhook_notifications provides total webhook notifications received",
	}

	StatsGraphTokenRefresh = metrics.Describe{
		Type: metrics.TypeCounter,
		Name: "stats_graph_token_refresh",
		Help: "stats_graph_token_refresh provides total Graph token refreshes after 401",
	}
)

// Perf
var (
	PerfAgentRun = metrics.Describe{
		Type: metrics.TypeSample,
		Name: "perf_agent_run",
		Help: "perf_agent_run provides duration of an agent run",
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of an LLM call",
		RequiredTags: []string{"model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of a tool call",
		RequiredTags: []string{"tool"},
	}

	PerfRegistryResolve = metrics.Describe{
		Type: metrics.TypeSample,
		Name: "perf_registry_resolve",
		Help: "perf_registry_resolve provides duration of tool registry resolution",
	}

	PerfGraphRequest = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_graph_request",
		Help:         "perf_graph_request provides duration of a Graph API request",
		RequiredTags: []string{"op"},
	}
)

// Metrics is the list of supported metrics to register.
var Metrics = []*metrics.Describe{
	&StatsRunsStarted,
	&StatsRunsSucceeded,
	&StatsRunsFailed,
	&StatsLLMCallsSucceeded,
	&StatsLLMCallsFailed,
	&StatsLLMInputTokens,
	&StatsLLMOutputTokens,
	&StatsToolCallsSucceeded,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsRegistryResolutions,
	&StatsRegistryServerErrors,
	&StatsWebhookNotifications,
	&StatsGraphTokenRefresh,
	&PerfAgentRun,
	&PerfLLMCall,
	&PerfToolCall,
	&PerfRegistryResolve,
	&PerfGraphRequest,
}
