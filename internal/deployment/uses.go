package deployment

import (
	"fmt"
	"sort"

	"github.com/nimbusframework/nimbus-go/internal/annotations"
	"github.com/nimbusframework/nimbus-go/internal/cloudformation"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// processUses grants a deployed function the permissions and environment its uses_* markers ask for
func (p *Processor) processUses(fn *deployedFunction) error {
	errs := nimbuserrors.NewMultipleErrors()

	for _, use := range fn.meta.Uses {
		for _, stage := range p.usesStages(use, fn) {
			function, ok := fn.resources[stage]
			if !ok {
				continue
			}
			if err := p.applyUse(use, function); err != nil {
				errs.Add(located(err, use))
			}
		}
	}
	return errs.ErrorOrNil()
}

// usesStages returns the stages a permission applies to; without stages it follows the function
func (p *Processor) usesStages(use models.Annotation, fn *deployedFunction) []string {
	if stages := use.Stages(); len(stages) > 0 {
		return stages
	}
	stages := make([]string, 0, len(fn.resources))
	for stage := range fn.resources {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}

func (p *Processor) applyUse(use models.Annotation, function *cloudformation.Function) error {
	role := function.Role()
	stage := function.Stage

	switch use.Type {
	case annotations.UsesDocumentStoreAnnotation, annotations.UsesKeyValueStoreAnnotation:
		kind := documentStore
		if use.Type == annotations.UsesKeyValueStoreAnnotation {
			kind = keyValueStore
		}
		model := use.GetString("dataModel")
		table, err := p.stores.table(kind, model, stage)
		if err != nil {
			return err
		}
		if table.Table != nil {
			role.AddAllowStatement("dynamodb:*", table.Table, "")
			role.AddAllowStatement("dynamodb:*", table.Table, "/index/*")
		} else {
			role.AddAllowStatementOn("dynamodb:*", table.ExistingArn)
		}
		function.AddEnvVariable(nimbus.TableNameEnv(model), table.Name)

	case annotations.UsesQueueAnnotation:
		name := use.GetString("queue")
		queue := p.env.Queue(name, stage)
		role.AddAllowStatement("sqs:SendMessage", queue, "")
		role.AddAllowStatement("sqs:GetQueueUrl", queue, "")
		function.AddEnvVariable(nimbus.QueueURLEnv(name), queue.URL())

	case annotations.UsesNotificationTopicAnnotation:
		name := use.GetString("topic")
		topic := p.env.Topic(name, stage)
		for _, action := range []string{"sns:Subscribe", "sns:Unsubscribe", "sns:Publish"} {
			role.AddAllowStatement(action, topic, "")
		}
		function.AddEnvVariable(nimbus.TopicARNEnv(name), topic.Arn())

	case annotations.UsesBasicFunctionAnnotation:
		target := use.GetString("target")
		callee, ok := p.functions[target]
		if !ok || callee.meta.Kind != models.BasicTrigger {
			return nimbuserrors.DependencyError("basic function", target,
				fmt.Sprintf("%s is not a basic serverless function", target)).
				WithSuggestion("Declare " + target + " with //nimbus::basic")
		}
		resource, ok := callee.resources[stage]
		if !ok {
			return nimbuserrors.DependencyError("basic function", target,
				fmt.Sprintf("%s is not deployed to stage %s", target, stage))
		}
		role.AddAllowStatement("lambda:*", resource, "")
		function.AddEnvVariable(nimbus.EnvProjectName, p.config.ProjectName)
		function.AddEnvVariable(nimbus.EnvFunctionStage, stage)

	default:
		return nimbuserrors.DeploymentError(function.Name, fmt.Sprintf("%s is not a permission marker", use.Type))
	}
	return nil
}
