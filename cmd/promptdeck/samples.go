package main

// Sample is one benchmark prompt.
type Sample struct {
	Name string
	Text string
}

// Samples grow from a one-line question to a multi-paragraph brief.
var Samples = []Sample{
	{
		Name: "tiny",
		Text: "What is the capital of Japan?",
	},
	{
		Name: "short",
		Text: "Summarize the difference between a DynamoDB partition key and a sort key in two sentences.",
	},
	{
		Name: "medium",
		Text: `Write a short status update for the team. The nightly batch job finished forty minutes late because the upstream export arrived after midnight. No data was lost and downstream reports were regenerated by 7am. We plan to add an alert when the export is more than fifteen minutes late.`,
	},
	{
		Name: "long",
		Text: `You are reviewing an incident report. Read it and list the three most important follow-up actions, each with an owner role and a deadline.

At 14:05 the checkout service began returning intermittent 502 errors. The on-call engineer noticed elevated latency on the payments gateway and rolled back the morning deploy at 14:20, which did not help. At 14:32 the database team found that a maintenance job had locked the orders table. The job was cancelled at 14:38 and error rates returned to normal by 14:41. Roughly 3% of checkout attempts failed during the window. The maintenance job had been scheduled by a new team member who was not aware of the change freeze, and the runbook did not mention the table lock.`,
	},
}
