package model

// DefaultStartTasks is the stock taxonomy for the start of a semester.
func DefaultStartTasks() Tasks {
	return Tasks{
		{Name: "Course Directive", Subtasks: []string{
			"Update year and semester number",
			"Update term dates and holidays",
			"Save to moderation folder",
			"Upload to course materials",
		}},
		{Name: "Moodle", Subtasks: []string{
			"Update schedule",
			"Check assignment deadlines",
			"Update GitHub Classroom links",
			"Add students",
		}},
		{Name: "Teams Setup", Subtasks: []string{
			"Create class channel",
			"Add students",
			"Send welcome message",
			"Setup TAs",
		}},
	}
}

// DefaultEndTasks is the stock taxonomy for the end of a semester.
func DefaultEndTasks() Tasks {
	return Tasks{
		{Name: "EBS", Subtasks: []string{
			"Marks entered",
			"Checked status",
			"Produce report",
		}},
		{Name: "Moodle", Subtasks: []string{
			"Download assessments",
			"Export grades",
			"Back up course",
			"Remove learners",
			"Reset course",
		}},
		{Name: "Archive and moderation", Subtasks: []string{
			"External assessment archive",
			"Moderation forms",
			"Grades in mod folder",
			"Submissions in mod folder",
		}},
	}
}

// DefaultTasks returns the stock taxonomy for s.
func DefaultTasks(s Semester) Tasks {
	if s == End {
		return DefaultEndTasks()
	}
	return DefaultStartTasks()
}
